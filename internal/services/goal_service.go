package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/goals"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

type GoalActionApplier interface {
	ApplyUserAction(ctx context.Context, userID uuid.UUID, topic, action string) (goals.UpsertResult, error)
}

type GoalService interface {
	// List returns goals in the given states, or every goal when states is empty.
	List(ctx context.Context, userID uuid.UUID, states []types.GoalState) ([]*types.SignalState, error)
	// ApplyAction records an explicit user choice and queues a pattern recompute when the goal moved.
	ApplyAction(ctx context.Context, userID uuid.UUID, topic, action string) (goals.UpsertResult, error)
}

type goalService struct {
	log     *logger.Logger
	states  repos.SignalStateRepo
	actions GoalActionApplier
	jobs    JobService
	notify  InsightNotifier
}

func NewGoalService(baseLog *logger.Logger, states repos.SignalStateRepo, actions GoalActionApplier, jobs JobService, notify InsightNotifier) GoalService {
	return &goalService{
		log:     baseLog.With("service", "GoalService"),
		states:  states,
		actions: actions,
		jobs:    jobs,
		notify:  notify,
	}
}

func (s *goalService) List(ctx context.Context, userID uuid.UUID, states []types.GoalState) ([]*types.SignalState, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if len(states) == 0 {
		return s.states.ListByUser(dbc, userID, journal.SignalTypeGoal)
	}
	return s.states.ListByStates(dbc, userID, journal.SignalTypeGoal, states)
}

func (s *goalService) ApplyAction(ctx context.Context, userID uuid.UUID, topic, action string) (goals.UpsertResult, error) {
	res, err := s.actions.ApplyUserAction(ctx, userID, topic, action)
	if err != nil {
		return res, err
	}
	if !res.Changed() {
		return res, nil
	}
	if s.notify != nil {
		s.notify.GoalUpdated(userID, res.State)
	}
	if _, err := s.jobs.Enqueue(dbctx.Context{Ctx: ctx}, userID, JobTypePatternRecompute, "user", &userID, map[string]any{
		"category": "",
	}); err != nil {
		s.log.Warn("queue pattern recompute failed", "user_id", userID, "error", err)
	}
	return res, nil
}
