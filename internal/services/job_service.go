package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	types "github.com/yungbote/hearth-backend/internal/domain"
	domainjobs "github.com/yungbote/hearth-backend/internal/domain/jobs"
	"github.com/yungbote/hearth-backend/internal/platform/ctxutil"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

const (
	JobTypeEntryCreated     = "entry_created"
	JobTypeEntryUpdated     = "entry_updated"
	JobTypePatternRecompute = "pattern_recompute"
	JobTypeBurnoutAssess    = "burnout_assess"

	// temporalWorkflowName matches temporalx/jobrun.WorkflowName.
	temporalWorkflowName = "job_run"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	// Dispatch hands a queued job to Temporal. Without Temporal the DB worker pool claims it.
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	GetForUser(dbc dbctx.Context, userID, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier

	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	notify JobNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		notify:            notify,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("missing owner_user_id: %w", errs.ErrInvalidArgument)
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type: %w", errs.ErrInvalidArgument)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if _, ok := payload["trace_id"]; !ok && td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if _, ok := payload["request_id"]; !ok && td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      domainjobs.StatusQueued,
		Stage:       "queued",
		Message:     "Queued",
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}

	// Inside a real transaction the caller dispatches after commit.
	if isDBTransaction(dbc.Tx) {
		s.log.Debug("Job enqueued inside transaction; awaiting dispatch after commit", "job_id", job.ID, "job_type", job.JobType)
		return job, nil
	}
	if err := s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

func isDBTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}

func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if s.temporal == nil || jobID == uuid.Nil {
		return nil
	}
	ctx := ctxutil.Default(dbc.Ctx)

	err := s.startWorkflow(ctx, jobID)
	if err == nil {
		return nil
	}
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}

	now := time.Now().UTC()
	_ = s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, jobID, map[string]interface{}{
		"status":        domainjobs.StatusFailed,
		"stage":         "dispatch",
		"message":       "",
		"error":         err.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
	if s.notify != nil {
		if rows, rerr := s.repo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{jobID}); rerr == nil && len(rows) > 0 && rows[0] != nil {
			s.notify.JobFailed(rows[0].OwnerUserID, rows[0], "dispatch", err.Error())
		}
	}
	return fmt.Errorf("start temporal workflow: %w", err)
}

func (s *jobService) startWorkflow(ctx context.Context, jobID uuid.UUID) error {
	tq := s.temporalTaskQueue
	if tq == "" {
		tq = "hearth"
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             tq,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}, temporalWorkflowName)
	return err
}

func (s *jobService) GetForUser(dbc dbctx.Context, userID, jobID uuid.UUID) (*types.JobRun, error) {
	if userID == uuid.Nil || jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id: %w", errs.ErrInvalidArgument)
	}
	rows, err := s.repo.GetByIDs(dbc, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil || rows[0].OwnerUserID != userID {
		return nil, fmt.Errorf("job %s: %w", jobID, errs.ErrNotFound)
	}
	return rows[0], nil
}
