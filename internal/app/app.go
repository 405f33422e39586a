package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Bhavy-official/RevLens/internal/config"
	"github.com/Bhavy-official/RevLens/internal/infrastructure/httpapi"
	"github.com/Bhavy-official/RevLens/internal/infrastructure/llm"
	"github.com/Bhavy-official/RevLens/internal/infrastructure/ml"
	scraperinfra "github.com/Bhavy-official/RevLens/internal/infrastructure/scraper"
	"github.com/Bhavy-official/RevLens/internal/infrastructure/scheduler"
	"github.com/Bhavy-official/RevLens/internal/infrastructure/storage"
	"github.com/Bhavy-official/RevLens/internal/infrastructure/telegram"
	"github.com/Bhavy-official/RevLens/internal/issues"
	"github.com/Bhavy-official/RevLens/internal/logging"
	"github.com/Bhavy-official/RevLens/internal/ports"
	"github.com/Bhavy-official/RevLens/internal/scraper"
	"github.com/Bhavy-official/RevLens/internal/sentiment"
	"github.com/Bhavy-official/RevLens/internal/stats"
	"github.com/Bhavy-official/RevLens/internal/usecase"
)

// Application wires config to adapters, the pipeline, and lifecycle
// orchestration. Every command builds one of these and drives the
// pipeline through it.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLiteRepository
	pipeline  *usecase.Pipeline
	refresher *usecase.Refresher
	server    *httpapi.Server
}

// New builds a runnable application instance. The caller owns the logger;
// passing nil creates one from the configured level.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	registry := scraper.NewRegistry()
	registry.Register(scraperinfra.NewFlipkartScraper(nil, ""))
	registry.Register(scraperinfra.NewAmazonScraper(nil))

	source := scraperinfra.NewStrategySource(registry, cfg.Marketplaces,
		logging.Component(baseLogger, "source"))

	mlClient := ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, cfg.ML.Timeout)

	var summarizer ports.Summarizer = mlClient
	if cfg.OpenAI.APIKey != "" {
		summarizer = llm.NewOpenAIClient(cfg.OpenAI)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Repository: store,
		Source:     source,
		Sentiment:  sentiment.NewAnalyzer(mlClient),
		Classifier: mlClient,
		Topics:     issues.NewTopicExtractor(mlClient),
		TopicsPing: mlClient,
		Stats:      stats.NewAggregator(cfg.Stats.DefaultAverageRating, cfg.Stats.RecentReviewLimit),
		Summarizer: summarizer,
		Notifier:   notifier,
		Logger:     logging.Component(baseLogger, "pipeline"),
	})

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		server:   httpapi.NewServer(pipeline, logging.Component(baseLogger, "http")),
	}

	if cfg.Refresh.Enabled {
		driver := scheduler.NewTickerScheduler(cfg.Refresh.Interval)
		a.refresher = usecase.NewRefresher(driver, pipeline)
	}

	return a, nil
}

// Pipeline exposes the orchestration component to command handlers.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Config returns the effective configuration the application was built with.
func (a *Application) Config() config.Config {
	return a.cfg
}

// Serve starts the periodic refresh job (when enabled) and blocks serving
// the dashboard API until the context is cancelled or the listener fails.
func (a *Application) Serve(ctx context.Context) error {
	if a.refresher != nil {
		if err := a.refresher.Start(ctx); err != nil {
			return fmt.Errorf("start refresher: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(a.cfg.HTTP.Addr)
	}()

	a.logger.Info("serving dashboard API", "addr", a.cfg.HTTP.Addr)

	select {
	case <-ctx.Done():
		return a.Close(context.Background())
	case err := <-errCh:
		_ = a.Close(context.Background())
		return err
	}
}

// Close shuts down the refresher, HTTP listener, and database.
func (a *Application) Close(ctx context.Context) error {
	if a.refresher != nil {
		_ = a.refresher.Stop(ctx)
	}
	if a.server != nil {
		_ = a.server.Shutdown(ctx)
	}
	return a.store.Close()
}
