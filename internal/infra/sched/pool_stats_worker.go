package sched

import (
	"context"
	"time"

	"pos-activation/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// PoolStatsWorker periodically publishes connection pool gauges.
type PoolStatsWorker struct {
	interval time.Duration
	store    string
	stats    func() metrics.PoolStats
	log      *zerolog.Logger
}

func NewPoolStatsWorker(interval time.Duration, store string, stats func() metrics.PoolStats, logger *zerolog.Logger) *PoolStatsWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	wlog := logger.With().Str("component", "PoolStatsWorker").Logger()
	return &PoolStatsWorker{
		interval: interval,
		store:    store,
		stats:    stats,
		log:      &wlog,
	}
}

// Run samples once immediately, then every interval until ctx is cancelled.
func (w *PoolStatsWorker) Run(ctx context.Context) error {
	w.log.Info().Str("store", w.store).Msg("Starting pool stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sample()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pool stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *PoolStatsWorker) sample() {
	s := w.stats()
	metrics.SetDBPoolStats(w.store, s)
	w.log.Trace().Int32("total", s.Total).Int32("idle", s.Idle).Int32("in_use", s.InUse).Msg("pool stats")
}
