package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

// DefaultSnooze applies to exclusions created without an expiry that are not permanent.
const DefaultSnooze = 30 * 24 * time.Hour

type CreateExclusionInput struct {
	PatternType string         `json:"pattern_type"`
	Context     map[string]any `json:"context,omitempty"`
	Permanent   bool           `json:"permanent"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
}

type ExclusionService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateExclusionInput) (*types.Exclusion, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Exclusion, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type exclusionService struct {
	log  *logger.Logger
	repo repos.ExclusionRepo
	now  func() time.Time
}

func NewExclusionService(baseLog *logger.Logger, repo repos.ExclusionRepo) ExclusionService {
	return &exclusionService{
		log:  baseLog.With("service", "ExclusionService"),
		repo: repo,
		now:  time.Now,
	}
}

func (s *exclusionService) Create(ctx context.Context, userID uuid.UUID, in CreateExclusionInput) (*types.Exclusion, error) {
	patternType := strings.ToLower(strings.TrimSpace(in.PatternType))
	if userID == uuid.Nil || patternType == "" {
		return nil, fmt.Errorf("pattern_type is required: %w", errs.ErrInvalidArgument)
	}
	now := s.now().UTC()
	x := &types.Exclusion{
		ID:          uuid.New(),
		UserID:      userID,
		PatternType: patternType,
		Permanent:   in.Permanent,
		CreatedAt:   now,
	}
	if !in.Permanent {
		exp := now.Add(DefaultSnooze)
		if in.ExpiresAt != nil {
			if !in.ExpiresAt.After(now) {
				return nil, fmt.Errorf("expires_at must be in the future: %w", errs.ErrInvalidArgument)
			}
			exp = in.ExpiresAt.UTC()
		}
		x.ExpiresAt = &exp
	}
	if len(in.Context) > 0 {
		b, err := json.Marshal(in.Context)
		if err != nil {
			return nil, fmt.Errorf("encode context: %v: %w", err, errs.ErrInvalidArgument)
		}
		x.Context = datatypes.JSON(b)
	}
	return s.repo.Create(dbctx.Context{Ctx: ctx}, x)
}

func (s *exclusionService) List(ctx context.Context, userID uuid.UUID) ([]*types.Exclusion, error) {
	return s.repo.ListByUser(dbctx.Context{Ctx: ctx}, userID)
}

func (s *exclusionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.Delete(dbctx.Context{Ctx: ctx}, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("exclusion %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
