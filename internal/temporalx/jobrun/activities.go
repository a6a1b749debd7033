package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	types "github.com/yungbote/hearth-backend/internal/domain"
	domainjobs "github.com/yungbote/hearth-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/hearth-backend/internal/jobs/runtime"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     repos.JobRunRepo
	Registry *jobrt.Registry
	Notify   services.JobNotifier
}

// Tick runs the job's handler once and reports the stored status afterwards.
func (a *Activities) Tick(ctx context.Context, jobID string) (TickResult, error) {
	res := TickResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id %q", jobID)
	}

	job, err := a.loadJob(ctx, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job %s not found", id)
	}
	if job.Status == domainjobs.StatusSucceeded {
		return fill(res, job), nil
	}

	stop := a.startHeartbeat(ctx, id)
	defer stop()

	now := time.Now().UTC()
	if err := a.Jobs.UpdateFields(dbctx.Context{Ctx: ctx, Tx: a.DB}, id, map[string]interface{}{
		"status":       domainjobs.StatusRunning,
		"attempts":     gorm.Expr("attempts + 1"),
		"locked_at":    now,
		"heartbeat_at": now,
		"updated_at":   now,
	}); err != nil {
		return res, fmt.Errorf("jobrun: mark running: %w", err)
	}
	job.Status = domainjobs.StatusRunning
	job.Attempts++
	job.LockedAt = &now
	job.HeartbeatAt = &now

	jc := jobrt.NewContext(ctx, a.DB, job, a.Jobs, a.Notify)
	returnedNil := false
	if h, ok := a.Registry.Get(job.JobType); !ok {
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
	} else {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.Log.Error("Job handler panic", "job_id", id, "job_type", job.JobType, "panic", r)
					jc.Fail("panic", fmt.Errorf("panic: %v", r))
				}
			}()
			if runErr := h.Run(jc); runErr != nil {
				jc.Fail("run", runErr)
				return
			}
			returnedNil = true
		}()
	}

	updated, err := a.loadJob(ctx, id)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: job %s vanished", id)
	}
	// A handler that returned nil without finishing the job counts as done.
	if returnedNil && updated.Status == domainjobs.StatusRunning {
		a.Log.Warn("Job handler returned without terminal status; marking succeeded", "job_id", id, "job_type", updated.JobType)
		jc.Succeed("done", nil)
		updated = jc.Job
	}
	return fill(res, updated), nil
}

func fill(res TickResult, job *types.JobRun) TickResult {
	res.Status = job.Status
	res.Stage = job.Stage
	res.Progress = job.Progress
	res.Message = job.Message
	return res
}

func (a *Activities) loadJob(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rows, err := a.Jobs.GetByIDs(dbctx.Context{Ctx: ctx, Tx: a.DB}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, nil
	}
	return rows[0], nil
}

// startHeartbeat keeps both the Temporal activity and the job_run row alive while a handler runs.
func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				if activity.IsActivity(ctx) {
					activity.RecordHeartbeat(ctx)
				}
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx, Tx: a.DB}, jobID)
			}
		}
	}()
	return func() { close(done) }
}
