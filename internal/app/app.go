package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/JosueCoro/mobicorp/internal/alerting"
	"github.com/JosueCoro/mobicorp/internal/config"
	"github.com/JosueCoro/mobicorp/internal/market"
	"github.com/JosueCoro/mobicorp/internal/pricing"
	"github.com/JosueCoro/mobicorp/internal/scheduler"
	"github.com/JosueCoro/mobicorp/internal/scraper"
	"github.com/JosueCoro/mobicorp/internal/service"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newSweeper(store storage.ScrapedItemStore) *scraper.Sweeper {
	fetcher := scraper.NewFetcher(scraper.FetcherOptions{
		Timeout:   a.Config.Scraper.RequestTimeout,
		UserAgent: a.Config.Scraper.UserAgent,
	}, a.Logger)
	return scraper.NewSweeper(fetcher, store, a.Config.Scraper.Source, a.Logger)
}

func (a *App) newSources(store storage.ScrapedItemStore) []market.SampleSource {
	sources := make([]market.SampleSource, 0, 2)
	if a.Config.Market.SyntheticEnabled {
		sources = append(sources, market.NewSynthetic(a.Config.Market.Seed, a.Logger))
	}
	if a.Config.Market.ScrapedEnabled && store != nil {
		sources = append(sources, market.NewScrapedSource(store, 0, a.Logger))
	}
	return sources
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newEvaluator(store storage.AlertStore) *pricing.AlertEvaluator {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	return pricing.NewAlertEvaluator(store, a.newNotifier(), a.Config.Alerting.ThresholdPct, a.Logger)
}

func (a *App) newService(store *storage.Store, sched *scheduler.Scheduler) *service.Service {
	comparator := pricing.NewComparator(a.newSources(store), store, a.newEvaluator(store), a.Logger)

	var locker storage.AdvisoryLocker
	if sched != nil {
		locker = store
	}

	return service.New(a.Config, a.newSweeper(store), comparator, store, store, sched, locker, a.Logger)
}

// Run executes the long-running periodic sweep service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(store, sched)

	a.Logger.Info().Msg("starting periodic sweep service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("periodic sweep service stopped")
	return nil
}

// SweepOptions configure the one-shot sweep command.
type SweepOptions struct {
	CategoryID int
	MinPrice   int
	MaxPrice   int
	Delay      time.Duration
	Full       bool
}

// ExportOptions hold parameters for exporting scraped items.
type ExportOptions struct {
	CSVPath string
	PNGPath string
	MaxRows int
}

// ScrapedOptions configure the scraped listing command.
type ScrapedOptions struct {
	Limit     int
	Offset    int
	Categoria string
	PrecioMin float64
	PrecioMax float64
}

// AlertsOptions configure the alerts command.
type AlertsOptions struct {
	Limit int
}
