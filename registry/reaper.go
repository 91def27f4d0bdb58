package registry

import (
	"context"
	"time"

	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/metrics"
)

// Reaper removes instances whose heartbeat went stale.
type Reaper struct {
	store    Store
	interval time.Duration
	log      *logger.Logger
}

// NewReaper creates a reaper that runs Cleanup every interval.
func NewReaper(store Store, interval time.Duration, log *logger.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Reaper{store: store, interval: interval, log: log.WithComponent("reaper")}
}

// Interval returns the cleanup period.
func (r *Reaper) Interval() time.Duration { return r.interval }

// Reap runs one Cleanup and returns the number of removed instances.
// Errors are logged and reported as zero removals.
func (r *Reaper) Reap(ctx context.Context) int {
	removed, err := r.store.Cleanup(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("cleanup").Inc()
		r.log.WithError(err).Warn("Registry cleanup failed")
		return 0
	}
	if removed > 0 {
		metrics.ReapedTotal.Add(float64(removed))
		r.log.Info("Removed stale instances", logger.Fields("removed", removed))
	}
	return removed
}
