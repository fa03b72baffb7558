package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/common"
	"github.com/ternarybob/healthscope/internal/handlers"
	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/services/agents"
	"github.com/ternarybob/healthscope/internal/services/aggregator"
	"github.com/ternarybob/healthscope/internal/services/analysis"
	"github.com/ternarybob/healthscope/internal/services/chat"
	"github.com/ternarybob/healthscope/internal/services/doctor"
	"github.com/ternarybob/healthscope/internal/services/llm"
	"github.com/ternarybob/healthscope/internal/services/pdf"
	"github.com/ternarybob/healthscope/internal/services/preprocess"
	"github.com/ternarybob/healthscope/internal/services/translate"
	badgerstore "github.com/ternarybob/healthscope/internal/storage/badger"
)

const (
	defaultAgentTimeout = 90 * time.Second
	defaultIdleTTL      = 24 * time.Hour
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Completion
	ProviderFactory *llm.ProviderFactory
	Completion      interfaces.CompletionProvider

	// Specialist panel
	Catalogue  *agents.Catalogue
	Panel      *agents.Panel
	Aggregator *aggregator.Aggregator
	Translator *translate.Translator

	// Ingestion and export
	Extractor     *pdf.Extractor
	Renderer      *pdf.Renderer
	HTMLConverter *preprocess.HTMLConverter

	AnalysisService *analysis.Service
	DoctorService   *doctor.Service

	// Symptom chatbot
	SessionStore interfaces.SessionStore
	Chatbot      *chat.Chatbot
	Pruner       *chat.Pruner

	// HTTP handlers
	APIHandler        *handlers.APIHandler
	AnalysisHandler   *handlers.AnalysisHandler
	ChatbotHandler    *handlers.ChatbotHandler
	ChatSocketHandler *handlers.ChatSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// An empty schedule leaves idle sessions to LRU eviction only
	if cfg.Chat.PruneSchedule != "" {
		if err := app.Pruner.Start(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to start chat session pruner: %w", err)
		}
	}

	logger.Info().
		Str("provider", string(app.ProviderFactory.DefaultProvider())).
		Bool("provider_configured", app.ProviderFactory.Configured()).
		Int("specialists", len(app.Catalogue.Roles())).
		Int("max_concurrency", cfg.Panel.MaxConcurrency).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Bool("in_memory", a.Config.Storage.Badger.InMemory).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes the business services in dependency order:
// completion -> panel and aggregator -> analysis -> chatbot
func (a *App) initServices() error {
	a.ProviderFactory = llm.NewProviderFactory(&a.Config.Gemini, &a.Config.Claude, &a.Config.LLM, a.Logger)
	a.Completion = llm.NewCompletionService(a.ProviderFactory, a.Logger)

	catalogue, err := agents.LoadCatalogue()
	if err != nil {
		return fmt.Errorf("failed to load specialist catalogue: %w", err)
	}
	a.Catalogue = catalogue

	for _, key := range a.Config.Panel.AggregateRoles {
		if _, ok := catalogue.Resolve(key); !ok {
			return fmt.Errorf("panel.aggregate_roles: unknown specialist %q", key)
		}
	}

	a.Panel = agents.NewPanel(catalogue, a.Completion, a.Logger, agents.PanelOptions{
		MaxConcurrency: a.Config.Panel.MaxConcurrency,
		AgentTimeout:   common.ParseDurationOr(a.Config.Panel.AgentTimeout, defaultAgentTimeout),
		MaxChars:       a.Config.Preprocess.MaxChars,
	})
	a.Aggregator = aggregator.NewAggregator(a.Completion, a.Logger)
	a.Translator = translate.NewTranslator(a.Completion, a.Logger)

	a.Extractor = pdf.NewExtractor(a.Logger)
	a.Renderer = pdf.NewRenderer(a.Logger)
	a.HTMLConverter = preprocess.NewHTMLConverter(a.Logger)

	a.AnalysisService = analysis.NewService(
		a.Panel,
		a.Aggregator,
		a.Translator,
		a.StorageManager.ReportStorage(),
		a.Renderer,
		a.Logger,
		analysis.Options{
			AggregateRoles: a.Config.Panel.AggregateRoles,
			MaxChars:       a.Config.Preprocess.MaxChars,
		},
	)
	a.DoctorService = doctor.NewService(a.Completion, a.Logger)

	a.SessionStore = chat.NewMemoryStore(a.Config.Chat.MaxHistory, a.Config.Chat.MaxSessions)
	a.Chatbot = chat.NewChatbot(a.SessionStore, a.Completion, a.Translator, a.Logger)
	a.Pruner = chat.NewPruner(
		a.SessionStore,
		common.ParseDurationOr(a.Config.Chat.IdleTTL, defaultIdleTTL),
		a.Config.Chat.PruneSchedule,
		a.Logger,
	)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Catalogue, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.AnalysisService, a.Aggregator, a.Extractor, a.HTMLConverter, a.Logger)
	a.ChatbotHandler = handlers.NewChatbotHandler(a.Chatbot, a.DoctorService, a.Logger)
	a.ChatSocketHandler = handlers.NewChatSocketHandler(a.Chatbot, a.Logger)
}

// Close stops background work and closes all application resources
func (a *App) Close() error {
	if a.Pruner != nil {
		a.Pruner.Stop()
	}

	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close completion providers")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
