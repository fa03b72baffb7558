package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
)

// Aggregator merges specialist opinions into one patient-facing report
type Aggregator struct {
	provider interfaces.CompletionProvider
	logger   arbor.ILogger
}

// NewAggregator creates an aggregator that summarizes through provider
func NewAggregator(provider interfaces.CompletionProvider, logger arbor.ILogger) *Aggregator {
	return &Aggregator{
		provider: provider,
		logger:   logger,
	}
}

// Aggregate builds the report. It never fails; a summary error is reported
// inside executive_summary and empty inputs produce the fixed fallbacks.
func (a *Aggregator) Aggregate(ctx context.Context, inputs []models.AggregateInput) models.AggregatedReport {
	start := time.Now()

	summaries := make([]string, 0, len(inputs))
	var conditions, recommendations []string
	for _, in := range inputs {
		if in.Result == nil {
			summaries = append(summaries, in.Raw)
			continue
		}
		summaries = append(summaries, in.Result.Summary)
		conditions = append(conditions, in.Result.LikelyConditions...)
		recommendations = append(recommendations, in.Result.Recommendations...)
	}
	combined := strings.Join(summaries, "\n")

	report := models.AggregatedReport{
		ExecutiveSummary:       a.executiveSummary(ctx, combined),
		ConsensusFindings:      consensus(inputs),
		AllConditions:          Dedup(conditions),
		Recommendations:        Dedup(recommendations),
		NextSteps:              []string{models.NextStepReviewSpecs, models.NextStepOrderTests},
		SpecialistSuggestions:  []string{},
		SpecialistExplanations: map[string]string{},
		Disclaimer:             models.Disclaimer,
	}

	searchParts := append(append([]string{combined}, report.AllConditions...), report.Recommendations...)
	referrals := InferReferrals(strings.Join(searchParts, "\n"))
	for _, r := range referrals {
		report.SpecialistSuggestions = append(report.SpecialistSuggestions, r.Specialist)
		report.SpecialistExplanations[r.Specialist] = r.Explanation
	}
	if len(referrals) > 0 {
		report.ExecutiveSummary = strings.TrimSpace(report.ExecutiveSummary) +
			models.SuggestedOpinionsIntro + strings.Join(report.SpecialistSuggestions, ", ") + "."
	}

	a.logger.Debug().
		Int("inputs", len(inputs)).
		Int("conditions", len(report.AllConditions)).
		Int("suggestions", len(report.SpecialistSuggestions)).
		Dur("duration", time.Since(start)).
		Msg("Aggregated specialist opinions")

	return report
}

func (a *Aggregator) executiveSummary(ctx context.Context, combined string) string {
	summary, err := a.provider.Summarize(ctx, combined)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Executive summary failed")
		return models.LLMErrorPrefix + err.Error()
	}
	if strings.TrimSpace(summary) == "" {
		return models.NoSummaryAvailable
	}
	return summary
}

// consensus collects each input's summary, or its JSON form when the summary is empty
func consensus(inputs []models.AggregateInput) []string {
	var out []string
	seen := make(map[string]bool)
	for _, in := range inputs {
		s := in.Raw
		if in.Result != nil {
			s = in.Result.Summary
			if s == "" {
				s = stringForm(*in.Result)
			}
		}

		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}

	if len(out) == 0 {
		return []string{models.NoConsensusFindings}
	}
	return out
}

func stringForm(r models.SpecialistResult) string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%v", r)
	}
	return string(b)
}

// Dedup removes repeats compared case-insensitively after trimming, keeping
// the first occurrence of each. Blank entries are dropped.
func Dedup(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
