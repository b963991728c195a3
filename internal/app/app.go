package app

import (
	"context"
	"fmt"
	"log/slog"

	"NewsRadio/internal/buffer"
	"NewsRadio/internal/config"
	"NewsRadio/internal/infrastructure/llm"
	"NewsRadio/internal/infrastructure/parser"
	"NewsRadio/internal/infrastructure/render"
	schedinfra "NewsRadio/internal/infrastructure/scheduler"
	"NewsRadio/internal/infrastructure/speech"
	"NewsRadio/internal/infrastructure/storage"
	"NewsRadio/internal/infrastructure/telegram"
	"NewsRadio/internal/ingest"
	"NewsRadio/internal/logging"
	"NewsRadio/internal/ports"
	"NewsRadio/internal/retry"
	"NewsRadio/internal/scanner"
	"NewsRadio/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	store        *storage.SQLiteRepository
	feed         *ingest.Feed
	orchestrator *usecase.Orchestrator
	scheduler    *usecase.ContentScheduler
}

// New builds a runnable station instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	retryCfg := retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Std(),
		MaxDelay:    cfg.Retry.MaxDelay.Std(),
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewRSSScanner(0))
	registry.Register(parser.NewHTMLScanner(nil))

	source := parser.NewStrategySource(registry, cfg.Sources, retryCfg,
		baseLogger.With("component", "source"))

	feed := ingest.New(source, store,
		cfg.Ingestion.DedupCapacity, cfg.Ingestion.Keywords,
		baseLogger.With("component", "ingest"))

	var events ports.EventSink = ports.NopSink{}
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		events = telegram.NewNotifier(tg.BotToken, tg.ChatID,
			baseLogger.With("component", "telegram"))
	}

	playback := buffer.New()

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Feed:        feed,
		NewsSource:  source,
		Synthesizer: llm.NewNarrativeClient(cfg.Synthesis),
		Renderer:    render.NewSongClient(cfg.Renderer),
		Downloader:  render.NewDownloader(cfg.Production.AudioDir, cfg.Production.MinAudioBytes, nil),
		Speech:      speech.NewClient(cfg.Speech, cfg.Production.AudioDir, cfg.Production.MinAudioBytes),
		Store:       store,
		Buffer:      playback,
		Events:      events,
		CycleDriver: schedinfra.NewIntervalDriver(cfg.Production.CycleInterval.Std()),
		NewsDriver:  schedinfra.NewIntervalDriver(cfg.Production.NewsInterval.Std()),
		Logger:      baseLogger.With("component", "orchestrator"),
		StoryTarget: cfg.Production.StoryTarget,
		Concurrency: cfg.Production.RenderConcurrency,
		SongStyle:   cfg.Production.SongStyle,
		NewsVoice:   cfg.Speech.Voice,
	})

	contentScheduler := usecase.NewContentScheduler(usecase.SchedulerDeps{
		Store:      store,
		PatternID:  cfg.Scheduler.PatternID,
		SlotWindow: cfg.Scheduler.SlotWindow.Std(),
		Logger:     baseLogger.With("component", "scheduler"),
	})

	return &Application{
		cfg:          cfg,
		logger:       baseLogger,
		store:        store,
		feed:         feed,
		orchestrator: orchestrator,
		scheduler:    contentScheduler,
	}, nil
}

// Orchestrator exposes the production cycle control surface.
func (a *Application) Orchestrator() *usecase.Orchestrator {
	return a.orchestrator
}

// Scheduler exposes the dispatch cascade.
func (a *Application) Scheduler() *usecase.ContentScheduler {
	return a.scheduler
}

// Run restores persisted ingestion state, starts the timers, and blocks until
// the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.feed.Restore(ctx); err != nil {
		return fmt.Errorf("restore seen items: %w", err)
	}

	if err := a.orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}
	a.logger.Info("station running",
		"cycle_interval", a.cfg.Production.CycleInterval.Std(),
		"news_interval", a.cfg.Production.NewsInterval.Std())

	<-ctx.Done()
	return a.Shutdown()
}

// Shutdown stops the timers and closes the store. An in-flight cycle is
// allowed to finish.
func (a *Application) Shutdown() error {
	a.logger.Info("station stopping")

	stopCtx := context.Background()
	if err := a.orchestrator.Stop(stopCtx); err != nil {
		a.logger.Error("stop orchestrator", "error", err)
	}

	return a.store.Close()
}
