// Package scheduler runs the periodic archive sweep that retires depleted
// or stale products.
package scheduler

import (
	"context"
	"errors"
	"time"

	"stockroom/internal/metrics"
	"stockroom/internal/model"

	"github.com/rs/zerolog"
)

// Tick outcomes, also used as the metrics label.
const (
	OutcomeIdle     = "idle"
	OutcomeArchived = "archived"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// ProductArchiver is the subset of the product service the sweep needs.
type ProductArchiver interface {
	FindProductToArchive(ctx context.Context) (*model.Product, error)
	Archive(ctx context.Context, id int64) (*model.ProductArchive, error)
}

// Archiver archives at most one eligible product per tick.
type Archiver struct {
	products ProductArchiver
	interval time.Duration
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewArchiver creates an archive scheduler that ticks every interval.
func NewArchiver(products ProductArchiver, interval time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Archiver {
	return &Archiver{
		products: products,
		interval: interval,
		metrics:  m,
		logger:   logger.With().Str("component", "archiver").Logger(),
	}
}

// Start runs the sweep until ctx is cancelled. Ticks run on this goroutine,
// so a slow tick delays the next one and missed ticks are dropped.
func (a *Archiver) Start(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info().Dur("interval", a.interval).Msg("archive scheduler started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("archive scheduler stopped")
			return nil
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, a.interval)
			a.RunOnce(tickCtx)
			cancel()
		}
	}
}

// RunOnce performs a single sweep and reports its outcome. Errors and panics
// are logged and never propagated.
func (a *Archiver) RunOnce(ctx context.Context) (outcome string) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("archive tick panicked")
			outcome = OutcomeFailed
		}
		a.metrics.ArchiveRun(outcome)
	}()

	candidate, err := a.products.FindProductToArchive(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to look for a product to archive")
		return OutcomeFailed
	}

	if candidate == nil {
		a.logger.Debug().Msg("no product to archive")
		return OutcomeIdle
	}

	snapshot, err := a.products.Archive(ctx, candidate.ID)
	if err != nil {
		if errors.Is(err, model.ErrProductAlreadyArchived) || errors.Is(err, model.ErrProductNotFound) {
			a.logger.Info().
				Err(err).
				Int64("product_id", candidate.ID).
				Msg("archive candidate changed before it could be archived")
			return OutcomeSkipped
		}
		a.logger.Error().Err(err).Int64("product_id", candidate.ID).Msg("failed to archive product")
		return OutcomeFailed
	}

	a.logger.Info().
		Int64("product_id", snapshot.ID).
		Str("code", snapshot.Code).
		Int("stock", snapshot.Stock).
		Dur("duration", time.Since(start)).
		Msg("product archived by scheduler")

	return OutcomeArchived
}
