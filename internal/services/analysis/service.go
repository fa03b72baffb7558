// -----------------------------------------------------------------------
// Analysis Service - Runs the specialist panel over one report and keeps
// the report, its analyses and the final aggregate
// -----------------------------------------------------------------------

package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/common"
	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/metrics"
	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/agents"
	"github.com/ternarybob/healthscope/internal/services/aggregator"
	"github.com/ternarybob/healthscope/internal/services/preprocess"
	"github.com/ternarybob/healthscope/internal/services/translate"
)

// Request errors. Handlers report these as 400.
var (
	ErrEmptyReport      = errors.New("no report text provided")
	ErrNotMedicalReport = errors.New("text does not look like a medical report")
)

// UnknownSpecialistError is returned when a requested specialist matches no role alias
type UnknownSpecialistError struct {
	Name string
}

func (e *UnknownSpecialistError) Error() string {
	return "unknown specialist: " + e.Name
}

// Mode is the panel mode a request resolved to
type Mode string

const (
	ModeSpecialist    Mode = "specialist"
	ModeRunAll        Mode = "run_all"
	ModeAggregateOnly Mode = "aggregate_only"
	ModeStoreOnly     Mode = "store_only"
)

// translatedRoles are the results rewritten when a response language is requested
var translatedRoles = []string{"cardiology", "psychology", "pulmonology"}

const hematologyKey = "hematology"

// AnalyzeRequest describes one report submission
type AnalyzeRequest struct {
	Text       string
	Source     string
	Specialist string
	RunAll     bool
	Aggregate  bool
	Lang       string
}

// AnalyzeResponse is the result of one report submission
type AnalyzeResponse struct {
	ReportID           string                             `json:"report_id"`
	Mode               Mode                               `json:"mode"`
	Results            map[string]models.SpecialistResult `json:"results"`
	FinalReport        *models.AggregatedReport           `json:"final_report,omitempty"`
	ExtractedTextDebug string                             `json:"extracted_text_debug"`
	IsBloodReport      bool                               `json:"is_blood_report"`
	Disclaimer         string                             `json:"disclaimer"`
}

// Options tunes the service
type Options struct {
	AggregateRoles []string
	MaxChars       int
}

// Service orchestrates preprocessing, the specialist panel, aggregation and persistence
type Service struct {
	panel      *agents.Panel
	aggregator *aggregator.Aggregator
	translator *translate.Translator
	storage    interfaces.ReportStorage
	renderer   interfaces.PDFService
	logger     arbor.ILogger
	opts       Options
}

// NewService creates the analysis service
func NewService(
	panel *agents.Panel,
	agg *aggregator.Aggregator,
	translator *translate.Translator,
	storage interfaces.ReportStorage,
	renderer interfaces.PDFService,
	logger arbor.ILogger,
	opts Options,
) *Service {
	return &Service{
		panel:      panel,
		aggregator: agg,
		translator: translator,
		storage:    storage,
		renderer:   renderer,
		logger:     logger,
		opts:       opts,
	}
}

// Analyze cleans and gates the report text, stores it, runs the panel in the
// requested mode and stores what the panel produced.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	start := time.Now()

	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyReport
	}

	cleaned := preprocess.CleanText(req.Text, s.opts.MaxChars)
	isBlood := preprocess.IsBloodReport(cleaned)

	if !preprocess.IsMedicalReport(cleaned) {
		return nil, ErrNotMedicalReport
	}

	mode, roles, err := s.resolveMode(req)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = "text"
	}
	report := &models.Report{
		ID:            common.NewReportID(),
		Source:        source,
		RawText:       cleaned,
		IsBloodReport: isBlood,
	}
	if err := s.storage.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	var opinions []agents.Opinion
	if len(roles) > 0 {
		opinions = s.panel.RunRoles(ctx, roles, cleaned)
	}

	if isBlood && !hasRole(opinions, hematologyKey) {
		if role, ok := s.panel.Catalogue().Resolve(hematologyKey); ok {
			s.logger.Debug().Str("report_id", report.ID).Msg("Blood report detected, attaching hematology opinion")
			opinions = append(opinions, s.panel.Consult(ctx, role, cleaned))
		}
	}

	s.saveAnalyses(ctx, report.ID, opinions)

	var final *models.AggregatedReport
	if inputs, ok := s.aggregateInputs(mode, req.Aggregate, opinions, cleaned); ok {
		agg := s.aggregator.Aggregate(ctx, inputs)
		final = &agg
		if err := s.storage.SaveFinal(ctx, &models.FinalReport{ReportID: report.ID, Payload: agg}); err != nil {
			s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("Failed to save final report")
		}
	}

	resp := &AnalyzeResponse{
		ReportID:           report.ID,
		Mode:               mode,
		Results:            agents.OpinionsByKey(opinions),
		FinalReport:        final,
		ExtractedTextDebug: req.Text,
		IsBloodReport:      isBlood,
		Disclaimer:         models.Disclaimer,
	}

	if _, ok := translate.LanguageName(req.Lang); ok {
		s.translateResponse(ctx, resp, req.Lang)
	}

	metrics.RecordReportAnalyzed(string(mode))

	s.logger.Info().
		Str("report_id", report.ID).
		Str("mode", string(mode)).
		Int("agents", len(opinions)).
		Bool("is_blood_report", isBlood).
		Bool("aggregated", final != nil).
		Dur("duration", time.Since(start)).
		Msg("Report analyzed")

	return resp, nil
}

// resolveMode picks the panel mode and the roles it runs
func (s *Service) resolveMode(req AnalyzeRequest) (Mode, []agents.Role, error) {
	if name := strings.TrimSpace(req.Specialist); name != "" {
		role, ok := s.panel.Catalogue().Resolve(name)
		if !ok {
			return "", nil, &UnknownSpecialistError{Name: req.Specialist}
		}
		return ModeSpecialist, []agents.Role{role}, nil
	}
	if req.RunAll {
		return ModeRunAll, s.panel.Catalogue().Roles(), nil
	}
	if req.Aggregate {
		return ModeAggregateOnly, nil, nil
	}
	return ModeStoreOnly, nil, nil
}

// aggregateInputs selects what the aggregator merges for mode. It reports false
// when the mode produces no final report.
func (s *Service) aggregateInputs(mode Mode, aggregate bool, opinions []agents.Opinion, cleaned string) ([]models.AggregateInput, bool) {
	switch mode {
	case ModeRunAll:
		byKey := agents.OpinionsByKey(opinions)
		inputs := make([]models.AggregateInput, 0, len(s.opts.AggregateRoles))
		for _, key := range s.opts.AggregateRoles {
			if result, ok := byKey[key]; ok {
				inputs = append(inputs, models.ResultInput(result))
			}
		}
		return inputs, true
	case ModeSpecialist:
		if !aggregate {
			return nil, false
		}
		inputs := make([]models.AggregateInput, 0, len(opinions))
		for _, op := range opinions {
			inputs = append(inputs, models.ResultInput(op.Result))
		}
		return inputs, true
	case ModeAggregateOnly:
		return []models.AggregateInput{models.RawInput(cleaned)}, true
	default:
		return nil, false
	}
}

func (s *Service) saveAnalyses(ctx context.Context, reportID string, opinions []agents.Opinion) {
	for _, op := range opinions {
		analysis := &models.Analysis{
			ID:       common.NewAnalysisID(),
			ReportID: reportID,
			Agent:    op.Role.Key,
			Payload:  op.Result,
		}
		if err := s.storage.SaveAnalysis(ctx, analysis); err != nil {
			s.logger.Warn().Err(err).
				Str("report_id", reportID).
				Str("agent", op.Role.Key).
				Msg("Failed to save analysis")
		}
	}
}

func (s *Service) translateResponse(ctx context.Context, resp *AnalyzeResponse, lang string) {
	if resp.FinalReport != nil {
		translated := s.translator.TranslateReport(ctx, *resp.FinalReport, lang)
		resp.FinalReport = &translated
	}
	for _, key := range translatedRoles {
		if result, ok := resp.Results[key]; ok {
			resp.Results[key] = s.translator.TranslateResult(ctx, result, key+" findings", lang)
		}
	}
}

func hasRole(opinions []agents.Opinion, key string) bool {
	for _, op := range opinions {
		if op.Role.Key == key {
			return true
		}
	}
	return false
}
