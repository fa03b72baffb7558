package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Healthscope", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("provider", string(config.LLM.DefaultProvider)).
		Int("panel_concurrency", config.Panel.MaxConcurrency).
		Str("storage", config.Storage.Badger.Path).
		Msg("Healthscope starting")
}
