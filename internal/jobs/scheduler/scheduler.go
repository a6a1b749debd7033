package scheduler

import (
	"context"
	"time"

	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/services"
)

type Sweeper interface {
	DailySweep(ctx context.Context) (services.SweepReport, error)
}

// Locker elects one sweeping process when several replicas run.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Config struct {
	// Hour is the local hour of day (0-23) the sweep starts at.
	Hour     int
	Location *time.Location
	Now      func() time.Time
}

// DailySweeper runs the insight sweep once a day.
type DailySweeper struct {
	sweeper Sweeper
	lock    Locker
	log     *logger.Logger
	cfg     Config
}

// NewDailySweeper builds a sweeper. A nil lock means this process always sweeps.
func NewDailySweeper(sweeper Sweeper, lock Locker, baseLog *logger.Logger, cfg Config) *DailySweeper {
	if cfg.Hour < 0 || cfg.Hour > 23 {
		cfg.Hour = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &DailySweeper{
		sweeper: sweeper,
		lock:    lock,
		log:     baseLog.With("component", "DailySweeper"),
		cfg:     cfg,
	}
}

// NextRun returns the next top of hour in loc strictly after now.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}

// Run blocks until ctx is done, sweeping once per day.
func (d *DailySweeper) Run(ctx context.Context) {
	d.log.Info("daily sweeper started", "hour", d.cfg.Hour, "location", d.cfg.Location.String())
	for {
		next := NextRun(d.cfg.Now(), d.cfg.Hour, d.cfg.Location)
		timer := time.NewTimer(next.Sub(d.cfg.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			d.log.Info("daily sweeper stopped")
			return
		case <-timer.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps now if this process wins the lock. It reports whether a sweep ran.
func (d *DailySweeper) RunOnce(ctx context.Context) bool {
	if d.lock != nil {
		ok, err := d.lock.TryAcquire(ctx)
		if err != nil {
			d.log.Warn("sweep lock failed", "error", err)
			return false
		}
		if !ok {
			d.log.Debug("another replica holds the sweep lock")
			return false
		}
		defer func() {
			if err := d.lock.Release(context.WithoutCancel(ctx)); err != nil {
				d.log.Warn("sweep lock release failed", "error", err)
			}
		}()
	}

	report, err := d.sweeper.DailySweep(ctx)
	if err != nil {
		d.log.Warn("daily sweep aborted", "error", err, "users", report.Users, "failed", report.Failed)
		return true
	}
	d.log.Info("daily sweep done", "users", report.Users, "failed", report.Failed, "duration_ms", report.Duration.Milliseconds())
	return true
}
