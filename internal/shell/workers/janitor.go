// Package workers contains background workers for deploybot.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pruner deletes records older than a cutoff.
type Pruner interface {
	PruneDeliveries(ctx context.Context, before time.Time) (int64, error)
}

// JanitorConfig configures the delivery janitor.
type JanitorConfig struct {
	// Interval is the time between prune cycles.
	// Default: 1 hour.
	Interval time.Duration

	// Retention is how long deliveries are kept.
	// Default: 7 days.
	Retention time.Duration
}

// DefaultJanitorConfig returns the default configuration.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval:  time.Hour,
		Retention: 7 * 24 * time.Hour,
	}
}

// Janitor periodically prunes old webhook deliveries.
type Janitor struct {
	store  Pruner
	config JanitorConfig
	logger *slog.Logger
	now    func() time.Time

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a new delivery janitor.
func NewJanitor(store Pruner, config JanitorConfig, logger *slog.Logger) *Janitor {
	defaults := DefaultJanitorConfig()
	if config.Interval == 0 {
		config.Interval = defaults.Interval
	}
	if config.Retention == 0 {
		config.Retention = defaults.Retention
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		store:  store,
		config: config,
		logger: logger.With("component", "delivery_janitor"),
		now:    time.Now,
	}
}

// Start begins the janitor background goroutine.
func (j *Janitor) Start() {
	j.ctx, j.cancel = context.WithCancel(context.Background())

	j.wg.Add(1)
	go j.run()

	j.logger.Info("delivery janitor started",
		"interval", j.config.Interval,
		"retention", j.config.Retention,
	)
}

// Stop gracefully stops the janitor, waiting for an in-progress cycle.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
	j.logger.Info("delivery janitor stopped")
}

// run is the main loop that prunes periodically.
func (j *Janitor) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.runCycle()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.runCycle()
		}
	}
}

// runCycle prunes deliveries older than the retention window.
func (j *Janitor) runCycle() {
	ctx, cancel := context.WithTimeout(j.ctx, j.config.Interval)
	defer cancel()

	cutoff := j.now().Add(-j.config.Retention)
	n, err := j.store.PruneDeliveries(ctx, cutoff)
	if err != nil {
		j.logger.Error("failed to prune deliveries", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("pruned deliveries", "count", n, "before", cutoff)
	}
}
