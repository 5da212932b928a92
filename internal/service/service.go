package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/config"
	"github.com/JosueCoro/mobicorp/internal/market"
	"github.com/JosueCoro/mobicorp/internal/pricing"
	"github.com/JosueCoro/mobicorp/internal/scheduler"
	"github.com/JosueCoro/mobicorp/internal/scraper"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

var (
	// ErrInvalidInput marks malformed request parameters. Surfaced
	// before any network activity is attempted.
	ErrInvalidInput = errors.New("service: invalid input")
	// ErrProductNotFound marks an unknown product id.
	ErrProductNotFound = errors.New("service: product not found")
)

// SweepParams describe one requested range sweep.
type SweepParams struct {
	CategoryID int
	MinPrice   int
	MaxPrice   int
	Delay      time.Duration
}

// Suggestion is the payload returned for a price suggestion request.
type Suggestion struct {
	SuggestedPrice decimal.Decimal      `json:"suggested_price"`
	MinPrice       decimal.Decimal      `json:"min_price"`
	MaxPrice       decimal.Decimal      `json:"max_price"`
	AvgPrice       decimal.Decimal      `json:"avg_price"`
	MarketSources  []market.Observation `json:"market_sources"`
	ComparisonID   int64                `json:"comparison_id"`
}

// Service orchestrates sweeps, comparisons and alert queries.
type Service struct {
	cfg        *config.Config
	sweeper    *scraper.Sweeper
	comparator *pricing.Comparator
	products   storage.ProductStore
	alerts     storage.AlertStore
	scheduler  *scheduler.Scheduler
	locker     storage.AdvisoryLocker
	lockKey    int64
	logger     zerolog.Logger
}

// New constructs the price intelligence service.
func New(cfg *config.Config, sweeper *scraper.Sweeper, comparator *pricing.Comparator, products storage.ProductStore, alerts storage.AlertStore, sched *scheduler.Scheduler, locker storage.AdvisoryLocker, logger zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		sweeper:    sweeper,
		comparator: comparator,
		products:   products,
		alerts:     alerts,
		scheduler:  sched,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// Sweep validates the request and runs one range sweep.
func (s *Service) Sweep(ctx context.Context, params SweepParams) (scraper.SweepResult, error) {
	category, err := s.validateSweep(params)
	if err != nil {
		return scraper.SweepResult{}, err
	}

	return s.sweeper.Sweep(ctx, scraper.SweepOptions{
		MinPrice:     params.MinPrice,
		MaxPrice:     params.MaxPrice,
		CategoryURL:  category.URL,
		CategoryName: category.Name,
		Delay:        params.Delay,
	})
}

// FullSweep runs a sweep from zero to the configured upper bound.
func (s *Service) FullSweep(ctx context.Context, categoryID int, delay time.Duration) (scraper.SweepResult, error) {
	return s.Sweep(ctx, SweepParams{
		CategoryID: categoryID,
		MinPrice:   0,
		MaxPrice:   s.cfg.Scraper.FullSweepMax,
		Delay:      delay,
	})
}

func (s *Service) validateSweep(params SweepParams) (config.CategoryConfig, error) {
	category, ok := s.cfg.Category(params.CategoryID)
	if !ok {
		return config.CategoryConfig{}, fmt.Errorf("%w: unknown category %d", ErrInvalidInput, params.CategoryID)
	}
	if params.MinPrice < 0 {
		return config.CategoryConfig{}, fmt.Errorf("%w: min_price cannot be negative", ErrInvalidInput)
	}
	if params.MaxPrice < params.MinPrice {
		return config.CategoryConfig{}, fmt.Errorf("%w: max_price must be >= min_price", ErrInvalidInput)
	}
	if params.Delay < 0 {
		return config.CategoryConfig{}, fmt.Errorf("%w: delay cannot be negative", ErrInvalidInput)
	}
	return category, nil
}

// Suggest produces a market comparison and suggested price for one
// catalog product.
func (s *Service) Suggest(ctx context.Context, productID int64) (Suggestion, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Suggestion{}, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return Suggestion{}, err
	}

	comparison, observations, err := s.comparator.Compare(ctx, product)
	if err != nil {
		return Suggestion{}, err
	}

	return Suggestion{
		SuggestedPrice: comparison.SuggestedPrice,
		MinPrice:       comparison.MinPrice,
		MaxPrice:       comparison.MaxPrice,
		AvgPrice:       comparison.AvgPrice,
		MarketSources:  observations,
		ComparisonID:   comparison.ID,
	}, nil
}

// Alerts lists recent price alerts, newest first.
func (s *Service) Alerts(ctx context.Context, limit int) ([]storage.AlertView, error) {
	return s.alerts.ListRecentAlerts(ctx, limit)
}

// Run begins the periodic full-sweep loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.processTick)
}

// processTick 执行单个时间桶的周期性扫描。
func (s *Service) processTick(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	result, err := s.FullSweep(ctx, s.cfg.Scheduler.Category, s.cfg.Scheduler.Delay)
	if err != nil {
		return err
	}

	s.logger.Info().Time("bucket", bucket).
		Int("total", result.TotalProductos).
		Int("new", result.ProductosNuevos).
		Int("duplicates", result.ProductosDuplicados).
		Msg("scheduled sweep recorded")
	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
