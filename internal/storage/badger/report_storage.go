package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
)

// ReportStorage implements the ReportStorage interface for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) SaveReport(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report ID is required")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(report.ID, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *ReportStorage) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.Store().Get(id, &report); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// ListReports returns the newest reports first. limit <= 0 returns all.
func (s *ReportStorage) ListReports(ctx context.Context, limit int) ([]*models.Report, error) {
	query := (&badgerhold.Query{}).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reports []models.Report
	if err := s.db.Store().Find(&reports, query); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	result := make([]*models.Report, len(reports))
	for i := range reports {
		result[i] = &reports[i]
	}
	return result, nil
}

// DeleteReport removes a report together with its analyses and final aggregate
func (s *ReportStorage) DeleteReport(ctx context.Context, id string) error {
	if _, err := s.GetReport(ctx, id); err != nil {
		return err
	}

	if err := s.db.Store().DeleteMatching(&models.Analysis{}, badgerhold.Where("ReportID").Eq(id).Index("ReportID")); err != nil {
		return fmt.Errorf("failed to delete analyses for report %s: %w", id, err)
	}
	if err := s.db.Store().Delete(id, &models.FinalReport{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete final report %s: %w", id, err)
	}
	if err := s.db.Store().Delete(id, &models.Report{}); err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}

	s.logger.Debug().Str("report_id", id).Msg("Report deleted")
	return nil
}

func (s *ReportStorage) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	if analysis.ID == "" {
		return fmt.Errorf("analysis ID is required")
	}
	if analysis.ReportID == "" {
		return fmt.Errorf("analysis report ID is required")
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(analysis.ID, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns a report's analyses ordered by agent name
func (s *ReportStorage) ListAnalyses(ctx context.Context, reportID string) ([]*models.Analysis, error) {
	var analyses []models.Analysis
	err := s.db.Store().Find(&analyses, badgerhold.Where("ReportID").Eq(reportID).Index("ReportID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].Agent < analyses[j].Agent
	})

	result := make([]*models.Analysis, len(analyses))
	for i := range analyses {
		result[i] = &analyses[i]
	}
	return result, nil
}

func (s *ReportStorage) SaveFinal(ctx context.Context, final *models.FinalReport) error {
	if final.ReportID == "" {
		return fmt.Errorf("final report ID is required")
	}
	if final.CreatedAt.IsZero() {
		final.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(final.ReportID, final); err != nil {
		return fmt.Errorf("failed to save final report: %w", err)
	}
	return nil
}

func (s *ReportStorage) GetFinal(ctx context.Context, reportID string) (*models.FinalReport, error) {
	var final models.FinalReport
	if err := s.db.Store().Get(reportID, &final); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: final report for %s", interfaces.ErrReportNotFound, reportID)
		}
		return nil, fmt.Errorf("failed to get final report: %w", err)
	}
	return &final, nil
}
