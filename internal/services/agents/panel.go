package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/metrics"
	"github.com/ternarybob/healthscope/internal/models"
)

// PanelOptions bounds how the panel runs its specialists
type PanelOptions struct {
	MaxConcurrency int
	AgentTimeout   time.Duration
	MaxChars       int
}

// Opinion is one specialist's result together with how it was produced
type Opinion struct {
	Role    Role
	Result  models.SpecialistResult
	Outcome string
}

// Panel fans report text out to the specialist roles of a catalogue
type Panel struct {
	catalogue *Catalogue
	provider  interfaces.CompletionProvider
	logger    arbor.ILogger
	opts      PanelOptions
}

// NewPanel creates a panel. Zero options fall back to one agent at a time with no deadline.
func NewPanel(catalogue *Catalogue, provider interfaces.CompletionProvider, logger arbor.ILogger, opts PanelOptions) *Panel {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &Panel{
		catalogue: catalogue,
		provider:  provider,
		logger:    logger,
		opts:      opts,
	}
}

// Catalogue returns the roles this panel can consult
func (p *Panel) Catalogue() *Catalogue {
	return p.catalogue
}

// Consult runs one role against text and always returns a complete result.
// Prose answers get one strict JSON retry, hematology answers that merely echo
// the lab table are replaced by the deterministic CBC reading, and a panic or
// deadline becomes a low-confidence error result.
func (p *Panel) Consult(ctx context.Context, role Role, text string) (op Opinion) {
	start := time.Now()
	op.Role = role

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("role", role.Name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Specialist panicked")
			op.Result = agentErrorResult(role, fmt.Errorf("%v", r))
			op.Outcome = metrics.OutcomeAgentError
		}
		metrics.RecordAgentRun(role.Key, op.Outcome)
	}()

	if p.opts.AgentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.AgentTimeout)
		defer cancel()
	}

	specialist := NewSpecialist(role, p.provider, p.logger, p.opts.MaxChars)
	analysis := specialist.Analyze(ctx, text)

	if err := ctx.Err(); err != nil {
		p.logger.Warn().Err(err).Str("role", role.Name).Dur("duration", time.Since(start)).Msg("Specialist did not finish in time")
		op.Result = agentErrorResult(role, err)
		op.Outcome = metrics.OutcomeAgentError
		return op
	}

	op.Result = analysis.Result
	op.Outcome = string(analysis.Kind)

	if analysis.Kind == OutcomePlainText {
		if strict, ok := specialist.AnalyzeStrict(ctx, text); ok {
			op.Result = strict
			op.Outcome = metrics.OutcomeStrictRetry
			analysis = Analysis{Result: strict, Kind: OutcomeParsed, Raw: analysis.Raw}
		}
	}

	if isHematology(role) && LooksLikeRawCBC(analysis) {
		op.Result = ParseCBC(text).Interpret(role.Name)
		op.Outcome = metrics.OutcomeCBCFallback
	}

	if !op.Result.HasContent() {
		op.Result.Summary = fmt.Sprintf("No specific %s findings detected in the report.", role.Key)
	}
	if op.Result.Role == "" {
		op.Result.Role = role.Name
	}

	p.logger.Info().
		Str("role", role.Name).
		Str("outcome", op.Outcome).
		Str("severity", op.Result.Severity).
		Dur("duration", time.Since(start)).
		Msg("Specialist consulted")

	return op
}

// RunAll consults every catalogue role. Results follow catalogue order.
func (p *Panel) RunAll(ctx context.Context, text string) []Opinion {
	return p.RunRoles(ctx, p.catalogue.Roles(), text)
}

// RunRoles consults roles concurrently, bounded by MaxConcurrency. Results
// follow the order of roles.
func (p *Panel) RunRoles(ctx context.Context, roles []Role, text string) []Opinion {
	opinions := make([]Opinion, len(roles))

	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrency)
	for i, role := range roles {
		g.Go(func() error {
			opinions[i] = p.Consult(ctx, role, text)
			return nil
		})
	}
	_ = g.Wait()

	return opinions
}

func isHematology(role Role) bool {
	return strings.HasPrefix(strings.ToLower(role.Key), "hema")
}

func agentErrorResult(role Role, err error) models.SpecialistResult {
	result := models.NewSpecialistResult(role.Name)
	result.Summary = fmt.Sprintf("%s agent error: %v", capitalize(role.Key), err)
	result.Severity = models.LevelLow
	result.Confidence = models.LevelLow
	return result
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// OpinionsByKey indexes opinions by role key
func OpinionsByKey(opinions []Opinion) map[string]models.SpecialistResult {
	out := make(map[string]models.SpecialistResult, len(opinions))
	for _, op := range opinions {
		out[op.Role.Key] = op.Result
	}
	return out
}
