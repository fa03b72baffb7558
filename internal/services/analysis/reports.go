package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/pdf"
)

// ReportDetail is a stored report with everything the panel produced for it
type ReportDetail struct {
	Report   *models.Report      `json:"report"`
	Analyses []*models.Analysis  `json:"analyses"`
	Final    *models.FinalReport `json:"final_report,omitempty"`
}

// Detail loads a report, its analyses and its final aggregate (if any)
func (s *Service) Detail(ctx context.Context, reportID string) (*ReportDetail, error) {
	report, err := s.storage.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	analyses, err := s.storage.ListAnalyses(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	final, err := s.storage.GetFinal(ctx, reportID)
	if err != nil && !errors.Is(err, interfaces.ErrReportNotFound) {
		return nil, fmt.Errorf("failed to load final report: %w", err)
	}

	return &ReportDetail{Report: report, Analyses: analyses, Final: final}, nil
}

// Reports lists stored reports, newest first
func (s *Service) Reports(ctx context.Context, limit int) ([]*models.Report, error) {
	return s.storage.ListReports(ctx, limit)
}

// DeleteReport removes a report with its analyses and final aggregate
func (s *Service) DeleteReport(ctx context.Context, reportID string) error {
	if err := s.storage.DeleteReport(ctx, reportID); err != nil {
		return err
	}
	s.logger.Info().Str("report_id", reportID).Msg("Report deleted")
	return nil
}

// RenderPDF renders a stored report as a PDF document
func (s *Service) RenderPDF(ctx context.Context, reportID string) ([]byte, error) {
	detail, err := s.Detail(ctx, reportID)
	if err != nil {
		return nil, err
	}

	markdown := pdf.ReportMarkdown(detail.Report, detail.Final, detail.Analyses)
	data, err := s.renderer.ConvertMarkdownToPDF(markdown, "Medical Report Analysis "+reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}
	return data, nil
}
