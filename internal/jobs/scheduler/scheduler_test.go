package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct{ n atomic.Int32 }

func (c *countingSweeper) DailySweep(context.Context) (services.SweepReport, error) {
	c.n.Add(1)
	return services.SweepReport{Users: 2}, nil
}

type fakeLock struct {
	grant    bool
	err      error
	released int
}

func (f *fakeLock) TryAcquire(context.Context) (bool, error) { return f.grant, f.err }
func (f *fakeLock) Release(context.Context) error {
	f.released++
	return nil
}

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before hour", time.Date(2026, 6, 1, 0, 30, 0, 0, loc), time.Date(2026, 6, 1, 3, 0, 0, 0, loc)},
		{"exactly at hour", time.Date(2026, 6, 1, 3, 0, 0, 0, loc), time.Date(2026, 6, 2, 3, 0, 0, 0, loc)},
		{"after hour", time.Date(2026, 6, 30, 22, 0, 0, 0, loc), time.Date(2026, 7, 1, 3, 0, 0, 0, loc)},
		{"utc input", time.Date(2026, 6, 1, 1, 30, 0, 0, time.UTC), time.Date(2026, 6, 2, 3, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		got := NextRun(tc.now, 3, loc)
		if !got.Equal(tc.want) {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestRunOnceRespectsLock(t *testing.T) {
	sw := &countingSweeper{}

	held := &fakeLock{grant: false}
	if NewDailySweeper(sw, held, logger.Nop(), Config{}).RunOnce(context.Background()) {
		t.Fatalf("RunOnce without lock: want=false got=true")
	}
	broken := &fakeLock{err: errors.New("redis down")}
	if NewDailySweeper(sw, broken, logger.Nop(), Config{}).RunOnce(context.Background()) {
		t.Fatalf("RunOnce with lock error: want=false got=true")
	}
	if sw.n.Load() != 0 {
		t.Fatalf("sweeps: want=0 got=%d", sw.n.Load())
	}

	granted := &fakeLock{grant: true}
	if !NewDailySweeper(sw, granted, logger.Nop(), Config{}).RunOnce(context.Background()) {
		t.Fatalf("RunOnce with lock: want=true got=false")
	}
	if sw.n.Load() != 1 || granted.released != 1 {
		t.Fatalf("sweeps/released: want=1/1 got=%d/%d", sw.n.Load(), granted.released)
	}

	if !NewDailySweeper(sw, nil, logger.Nop(), Config{}).RunOnce(context.Background()) {
		t.Fatalf("RunOnce without locker: want=true got=false")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sw := &countingSweeper{}
	d := NewDailySweeper(sw, nil, logger.Nop(), Config{Hour: 3})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRunSweepsWhenHourArrives(t *testing.T) {
	sw := &countingSweeper{}
	// The clock reads just before the hour so the first timer fires almost at once.
	base := time.Date(2026, 6, 1, 2, 59, 59, 990_000_000, time.UTC)
	var calls atomic.Int32
	now := func() time.Time {
		if calls.Add(1) <= 2 {
			return base
		}
		return base.Add(time.Hour)
	}
	d := NewDailySweeper(sw, nil, logger.Nop(), Config{Hour: 3, Now: now})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for sw.n.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if sw.n.Load() != 1 {
		t.Fatalf("sweeps: want=1 got=%d", sw.n.Load())
	}
}
