package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"newsdigest/internal/bot"
	"newsdigest/internal/collector"
	"newsdigest/internal/config"
	"newsdigest/internal/digest"
	"newsdigest/internal/feed"
	"newsdigest/internal/scraper"
	"newsdigest/internal/storage"
	"newsdigest/internal/summarize"
)

// app holds the wired components of one process.
type app struct {
	store     storage.Store
	scheduler *digest.Scheduler
}

func (a *app) Close() {
	log.Info("Closing ledger store...")
	if err := a.store.Close(); err != nil {
		log.WithError(err).Error("Error closing ledger store")
	}
}

// newApp builds every component from cfg. reg may be nil to skip metrics.
func newApp(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, reg prometheus.Registerer) (*app, error) {
	if err := cfg.RequireDelivery(); err != nil {
		return nil, err
	}

	logger.Info("Initializing components...")

	// Ledger
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger store: %w", err)
	}
	ledger := storage.NewLedger(store)

	// Feeds and extraction
	reader := feed.NewGofeedReader(cfg.Collector.FetchTimeout, logger)
	var limiter *rate.Limiter
	if cfg.Collector.ExtractRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Collector.ExtractRate), 1)
	}
	coll := collector.New(collector.Deps{
		Sources:   cfg.Feeds,
		Reader:    reader,
		Extractor: newExtractor(cfg.Collector, logger),
		Links:     ledger,
		Limiter:   limiter,
		Limits: collector.Limits{
			MinContent:    cfg.Collector.MinContent,
			MaxContent:    cfg.Collector.MaxContent,
			FallbackChars: cfg.Collector.FallbackChars,
		},
		Logger: logger,
	})

	// Summarization
	generator := summarize.NewAnthropicGenerator(summarize.AnthropicConfig{
		APIKey:     cfg.Anthropic.APIKey,
		BaseURL:    cfg.Anthropic.BaseURL,
		Fast:       summarize.TierModel{Model: cfg.Summarizer.FastModel, MaxTokens: cfg.Summarizer.FastMaxTokens},
		Deep:       summarize.TierModel{Model: cfg.Summarizer.DeepModel, MaxTokens: cfg.Summarizer.DeepMaxTokens},
		Timeout:    cfg.Summarizer.Timeout,
		MaxRetries: cfg.Summarizer.MaxRetries,
	}, logger)
	gateway := summarize.NewGateway(generator, summarize.Limits{
		FastChars: cfg.Summarizer.FastChars,
		DeepItems: cfg.Collector.DeepMaxItems,
		DeepChars: cfg.Summarizer.DeepChars,
	}, logger)

	// Delivery
	publisher, err := bot.NewPublisher(bot.Config{
		Token:     cfg.Telegram.BotToken,
		ChatID:    cfg.Telegram.ChatID,
		ServerURL: cfg.Telegram.ServerURL,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize Telegram publisher: %w", err)
	}

	var metrics *digest.Metrics
	if reg != nil {
		metrics = digest.NewMetrics(reg)
	}

	scheduler := digest.NewScheduler(digest.Deps{
		Windows:    ledger,
		Collector:  coll,
		Summarizer: gateway,
		Publisher:  publisher,
		Metrics:    metrics,
		Logger:     logger,
		Config: digest.Config{
			StartHour:    cfg.Schedule.StartHour,
			EndHour:      cfg.Schedule.EndHour,
			DeepDiveHour: cfg.Schedule.DeepDiveHour,
			Hourly:       collector.Options{PerSource: cfg.Collector.FlashPerSource, MaxItems: cfg.Collector.FlashMaxItems},
			Deep:         collector.Options{PerSource: cfg.Collector.DeepPerSource, MaxItems: cfg.Collector.DeepMaxItems},
			AttachImage:  cfg.Digest.AttachImage,
			Location:     cfg.Location(),
		},
	})

	return &app{store: store, scheduler: scheduler}, nil
}

func openStore(ctx context.Context, sc config.StoreConfig, logger logrus.FieldLogger) (storage.Store, error) {
	switch sc.Driver {
	case "badger":
		return storage.NewBadgerStore(sc.BadgerPath, logger)
	case "sqlite":
		return storage.NewSQLiteStore(sc.SQLitePath, logger)
	case "redis":
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return storage.NewRedisStore(connectCtx, sc.RedisAddr, sc.RedisPassword, sc.RedisDB, logger)
	case "memory":
		logger.Warn("Using in-memory ledger: idempotency does not survive restarts")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

func newExtractor(cc config.CollectorConfig, logger logrus.FieldLogger) scraper.Extractor {
	switch cc.Extractor {
	case "rod":
		return scraper.NewRodExtractor(cc.FetchTimeout, logger)
	case "none":
		return scraper.NopExtractor{}
	default:
		return scraper.NewReadabilityExtractor(cc.FetchTimeout, logger)
	}
}
