package sweep

import (
	"context"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/queue"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"
)

// LeaseKey names the lease that serialises sweeps across server replicas.
const LeaseKey = "inventory_sweep"

// Locker runs fn only when the named lease could be taken.
type Locker interface {
	TryRun(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) (bool, error)
}

// Sweeper periodically looks for expiring units and stock shortages and
// publishes them as alerts.
type Sweeper struct {
	Service    *orchestrator.Service
	Publisher  queue.Publisher
	Lock       Locker
	Interval   time.Duration
	HoursAhead int
	Holder     string
}

// Report is the outcome of one sweep.
type Report struct {
	Expiring  []orchestrator.ExpiryAction    `json:"expiring"`
	Shortages []orchestrator.ShortageWarning `json:"shortages"`
}

// RunOnce performs a single sweep. Without a Locker it always runs; with
// one, skipped is true when another holder owns the lease.
func (s *Sweeper) RunOnce(ctx context.Context) (rep Report, skipped bool, err error) {
	work := func(ctx context.Context) error {
		rep = Report{
			Expiring:  s.Service.OptimizeInventory(),
			Shortages: s.Service.PredictShortages(s.HoursAhead),
		}
		if s.Publisher == nil {
			return nil
		}
		return queue.PublishAlerts(s.Publisher, rep.Expiring, rep.Shortages)
	}

	if s.Lock == nil {
		return rep, false, work(ctx)
	}
	ran, err := s.Lock.TryRun(ctx, LeaseKey, leaselock.Options{
		TTL:    max(2*s.Interval, time.Minute),
		Holder: s.Holder,
	}, work)
	return rep, !ran, err
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	logger.Info("[Sweep] Started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Sweep] Stopped")
			return
		case <-t.C:
			rep, skipped, err := s.RunOnce(ctx)
			switch {
			case err != nil:
				logger.Error("[Sweep] Failed", "err", err)
			case skipped:
				logger.Debug("[Sweep] Another replica holds the lease")
			default:
				logger.Info("[Sweep] Completed", "expiring", len(rep.Expiring), "shortages", len(rep.Shortages))
			}
		}
	}
}
