package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/insights/patterns"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
)

// InsightQueryService reads persisted insight state for presentation.
type InsightQueryService interface {
	Patterns(ctx context.Context, userID uuid.UUID, category string) ([]*types.PatternDocument, error)
	LatestBurnout(ctx context.Context, userID uuid.UUID) (*types.BurnoutAssessment, error)
	BurnoutHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.BurnoutAssessmentRecord, error)
}

type insightQueryService struct {
	patterns repos.PatternRepo
	profiles repos.UserProfileRepo
	burnout  repos.BurnoutRepo
}

func NewInsightQueryService(patternRepo repos.PatternRepo, profiles repos.UserProfileRepo, burnoutRepo repos.BurnoutRepo) InsightQueryService {
	return &insightQueryService{patterns: patternRepo, profiles: profiles, burnout: burnoutRepo}
}

func (s *insightQueryService) Patterns(ctx context.Context, userID uuid.UUID, category string) ([]*types.PatternDocument, error) {
	docs, err := s.patterns.GetByScope(dbctx.Context{Ctx: ctx}, userID, patterns.ScopeFor(category))
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	return docs, nil
}

func (s *insightQueryService) LatestBurnout(ctx context.Context, userID uuid.UUID) (*types.BurnoutAssessment, error) {
	p, err := s.profiles.Get(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p.Burnout(), nil
}

func (s *insightQueryService) BurnoutHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.BurnoutAssessmentRecord, error) {
	return s.burnout.ListHistory(dbctx.Context{Ctx: ctx}, userID, limit)
}
