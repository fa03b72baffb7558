package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	LLM         LLMConfig        `toml:"llm"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	Panel       PanelConfig      `toml:"panel"`
	Preprocess  PreprocessConfig `toml:"preprocess"`
	Chat        ChatConfig       `toml:"chat"`
	Metrics     MetricsConfig    `toml:"metrics"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Directory for the badger files
	ResetOnStartup bool   `toml:"reset_on_startup"` // Wipe stored reports on startup
	InMemory       bool   `toml:"in_memory"`        // Keep everything in memory (tests, demos)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains provider-independent completion settings
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
	MaxRetries      int         `toml:"max_retries"`      // Retries on rate-limit errors (default: 3)
	RateLimit       string      `toml:"rate_limit"`       // Minimum spacing between completion calls (default: "500ms")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-2.5-flash"
	Timeout     string  `toml:"timeout"`     // default: "2m"
	Temperature float32 `toml:"temperature"` // default: 0.2
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // default: "claude-sonnet-4-20250514"
	MaxTokens   int     `toml:"max_tokens"` // default: 800
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// PanelConfig controls the specialist panel fan-out
type PanelConfig struct {
	MaxConcurrency int      `toml:"max_concurrency"` // Specialists analysed at once (default: 4)
	AgentTimeout   string   `toml:"agent_timeout"`   // Per-specialist deadline (default: "90s")
	AggregateRoles []string `toml:"aggregate_roles"` // Role keys merged into the final report in run-all mode
}

// PreprocessConfig controls report text cleaning
type PreprocessConfig struct {
	MaxChars int `toml:"max_chars"` // Truncation limit for cleaned report text (default: 15000)
}

// ChatConfig controls the symptom chatbot session store
type ChatConfig struct {
	MaxHistory    int    `toml:"max_history"`    // Turns kept per session (default: 10)
	MaxSessions   int    `toml:"max_sessions"`   // Sessions kept before least-recently-active eviction (default: 500)
	IdleTTL       string `toml:"idle_ttl"`       // Sessions idle longer than this are pruned (default: "24h")
	PruneSchedule string `toml:"prune_schedule"` // Cron schedule for pruning (default: every 15 minutes)
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			MaxRetries:      3,
			RateLimit:       "500ms",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "2m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   800,
			Timeout:     "2m",
			Temperature: 0.2,
		},
		Panel: PanelConfig{
			MaxConcurrency: 4,
			AgentTimeout:   "90s",
			AggregateRoles: []string{"cardiology", "psychology", "pulmonology"},
		},
		Preprocess: PreprocessConfig{
			MaxChars: 15000,
		},
		Chat: ChatConfig{
			MaxHistory:    10,
			MaxSessions:   500,
			IdleTTL:       "24h",
			PruneSchedule: "0 */15 * * * *",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadFromFiles loads configuration files in order, later files override earlier ones.
// Priority: defaults -> files -> environment variables. CLI flags are applied by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HEALTHSCOPE_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := os.Getenv("HEALTHSCOPE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HEALTHSCOPE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage
	if badgerPath := os.Getenv("HEALTHSCOPE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging
	if level := os.Getenv("HEALTHSCOPE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HEALTHSCOPE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM
	if provider := os.Getenv("HEALTHSCOPE_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if model := os.Getenv("HEALTHSCOPE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if model := os.Getenv("HEALTHSCOPE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Panel
	if concurrency := os.Getenv("HEALTHSCOPE_PANEL_MAX_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Panel.MaxConcurrency = c
		}
	}

	// Chat
	if ttl := os.Getenv("HEALTHSCOPE_CHAT_IDLE_TTL"); ttl != "" {
		config.Chat.IdleTTL = ttl
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("invalid llm.default_provider %q (expected gemini or claude)", c.LLM.DefaultProvider)
	}

	for name, value := range map[string]string{
		"llm.rate_limit":      c.LLM.RateLimit,
		"gemini.timeout":      c.Gemini.Timeout,
		"claude.timeout":      c.Claude.Timeout,
		"panel.agent_timeout": c.Panel.AgentTimeout,
		"chat.idle_ttl":       c.Chat.IdleTTL,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if c.Chat.PruneSchedule != "" {
		if err := ValidateSchedule(c.Chat.PruneSchedule); err != nil {
			return err
		}
	}

	return nil
}

// ValidateSchedule checks a six-field (seconds first) cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ResolveAPIKey resolves an API key with priority: environment -> config value.
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"HEALTHSCOPE_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic_api_key": {"HEALTHSCOPE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"claude_api_key":    {"HEALTHSCOPE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
