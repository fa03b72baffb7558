package chat

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/common"
	"github.com/ternarybob/healthscope/internal/interfaces"
)

// Pruner removes idle chat sessions on a cron schedule (six fields, seconds first)
type Pruner struct {
	store    interfaces.SessionStore
	ttl      time.Duration
	schedule string
	cron     *cron.Cron
	logger   arbor.ILogger
}

// NewPruner creates a pruner; call Start to schedule it
func NewPruner(store interfaces.SessionStore, ttl time.Duration, schedule string, logger arbor.ILogger) *Pruner {
	return &Pruner{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Start registers the prune job and starts the scheduler
func (p *Pruner) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.PruneNow); err != nil {
		return fmt.Errorf("failed to schedule chat session pruning: %w", err)
	}
	p.cron.Start()

	p.logger.Info().
		Str("schedule", p.schedule).
		Dur("idle_ttl", p.ttl).
		Msg("Chat session pruner started")
	return nil
}

// Stop halts the scheduler and waits for a running prune to finish
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info().Msg("Chat session pruner stopped")
}

// PruneNow removes sessions idle longer than the configured TTL
func (p *Pruner) PruneNow() {
	defer common.RecoverAndLog(p.logger, "chat-pruner")

	removed := p.store.Prune(p.ttl)
	if removed > 0 {
		p.logger.Info().
			Int("removed", removed).
			Int("remaining", p.store.Len()).
			Msg("Pruned idle chat sessions")
	}
}
