package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	"github.com/yungbote/hearth-backend/internal/jobs/runtime"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/services"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 10 * time.Minute
	}
	return c
}

// Worker is the database-backed pool used when Temporal is not configured.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	cfg      Config
	wg       sync.WaitGroup
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, cfg Config) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		cfg:      cfg.withDefaults(),
	}
}

// Start launches the pool. Loops exit when ctx is canceled; Wait blocks until they have.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain whatever is runnable before sleeping again.
			for ctx.Err() == nil {
				if !w.runOne(ctx, workerID) {
					break
				}
			}
		}
	}
}

// runOne claims and executes at most one job. It reports whether a job was claimed.
func (w *Worker) runOne(ctx context.Context, workerID int) bool {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx, Tx: w.db}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
		}
		return false
	}
	if job == nil {
		return false
	}

	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "worker_id", workerID, "job_type", job.JobType, "job_id", job.ID)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return true
	}

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "worker_id", workerID, "job_id", job.ID, "job_type", job.JobType, "panic", r)
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			// Handlers usually call jc.Fail themselves; this catches the rest.
			jc.Fail("run", runErr)
		}
	}()
	w.log.Debug("Job finished",
		"worker_id", workerID,
		"job_id", job.ID,
		"job_type", job.JobType,
		"status", jc.Job.Status,
		"attempt", job.Attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }
