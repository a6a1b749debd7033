package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/realtime"
	"github.com/yungbote/hearth-backend/internal/realtime/bus"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.JobRun)
	JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string)
	JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.JobRun)
}

// publisher pushes realtime messages onto the bus without blocking callers for long.
type publisher struct {
	bus bus.Bus
	log *logger.Logger
}

func (p publisher) publish(userID uuid.UUID, event realtime.SSEEvent, data any) {
	if p.bus == nil || userID == uuid.Nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg := realtime.SSEMessage{Channel: userID.String(), Event: event, Data: data}
	if err := p.bus.Publish(ctx, msg); err != nil && p.log != nil {
		p.log.Warn("publish realtime event failed", "event", event, "user_id", userID, "error", err)
	}
}

type jobNotifier struct {
	publisher
}

func NewJobNotifier(b bus.Bus, baseLog *logger.Logger) JobNotifier {
	return &jobNotifier{publisher{bus: b, log: baseLog.With("service", "JobNotifier")}}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *types.JobRun) {
	n.publish(userID, realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string) {
	n.publish(userID, realtime.SSEEventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	n.publish(userID, realtime.SSEEventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *types.JobRun) {
	n.publish(userID, realtime.SSEEventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
	})
}
