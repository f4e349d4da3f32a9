// Package worker runs the periodic cleanup of expired carts and stock
// reservations.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sweeper deletes rows that expired at or before now and reports how many.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// SweepFunc adapts a method such as DeleteExpiredCarts to Sweeper.
type SweepFunc func(ctx context.Context, now time.Time) (int64, error)

// Sweep implements Sweeper.
func (f SweepFunc) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

// CleanupObserver records how many rows each sweep removed.
type CleanupObserver interface {
	ObserveCleanup(resource string, deleted int64)
}

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// Interval is how often the sweeps run
	Interval time.Duration

	// Timeout bounds a single round of sweeps
	Timeout time.Duration
}

// Worker runs named sweeps on a fixed interval
type Worker struct {
	config   Config
	sweepers map[string]Sweeper
	observer CleanupObserver
	logger   zerolog.Logger
	now      func() time.Time
}

// NewWorker creates a new cleanup worker. sweepers maps a resource name
// (used in logs and metrics) to its sweep. observer may be nil.
func NewWorker(sweepers map[string]Sweeper, observer CleanupObserver, config Config, logger zerolog.Logger) *Worker {
	// Set defaults
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.Interval == 0 {
		config.Interval = 10 * time.Minute
	}
	if config.Timeout == 0 {
		config.Timeout = time.Minute
	}

	return &Worker{
		config:   config,
		sweepers: sweepers,
		observer: observer,
		logger:   logger.With().Str("component", "worker").Str("worker_id", config.WorkerID).Logger(),
		now:      time.Now,
	}
}

// Start runs a round of sweeps immediately and then on every tick until the
// context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().
		Dur("interval", w.config.Interval).
		Int("sweepers", len(w.sweepers)).
		Msg("worker starting")

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker shutting down")
			return ctx.Err()

		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs every sweep concurrently and returns the rows each removed.
// A failing sweep is logged and does not stop the others.
func (w *Worker) RunOnce(ctx context.Context) map[string]int64 {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	now := w.now()
	counts := make([]int64, 0, len(w.sweepers))
	names := make([]string, 0, len(w.sweepers))
	for name := range w.sweepers {
		names = append(names, name)
		counts = append(counts, 0)
	}

	var g errgroup.Group
	for i, name := range names {
		sweeper := w.sweepers[name]
		g.Go(func() error {
			deleted, err := sweeper.Sweep(ctx, now)
			if err != nil {
				w.logger.Error().Err(err).Str("resource", name).Msg("sweep failed")
				return nil
			}
			counts[i] = deleted
			if w.observer != nil {
				w.observer.ObserveCleanup(name, deleted)
			}
			if deleted > 0 {
				w.logger.Info().Str("resource", name).Int64("deleted", deleted).Msg("expired rows removed")
			}
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string]int64, len(names))
	for i, name := range names {
		result[name] = counts[i]
	}
	return result
}
