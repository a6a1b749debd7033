package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

const (
	maxEntryTextLen  = 20000
	defaultPageLimit = 50
	maxPageLimit     = 200
)

type CreateEntryInput struct {
	Text          string          `json:"text"`
	Category      string          `json:"category,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	EffectiveDate *time.Time      `json:"effective_date,omitempty"`
	Analysis      json.RawMessage `json:"analysis,omitempty"`
}

type UpdateEntryInput struct {
	Text          *string    `json:"text,omitempty"`
	Category      *string    `json:"category,omitempty"`
	Tags          *[]string  `json:"tags,omitempty"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
}

type EntryService interface {
	// Create stores the entry and queues the entry_created trigger.
	Create(ctx context.Context, userID uuid.UUID, in CreateEntryInput) (*types.Entry, *types.JobRun, error)
	// AttachAnalysis stores the classifier output and queues entry_updated with the fields that
	// were present before.
	AttachAnalysis(ctx context.Context, userID, entryID uuid.UUID, raw json.RawMessage) (*types.Entry, *types.JobRun, error)
	Update(ctx context.Context, userID, entryID uuid.UUID, in UpdateEntryInput) (*types.Entry, error)
	Get(ctx context.Context, userID, entryID uuid.UUID) (*types.Entry, error)
	List(ctx context.Context, userID uuid.UUID, before *time.Time, limit int) ([]*types.Entry, error)
}

type entryService struct {
	db       *gorm.DB
	log      *logger.Logger
	entries  repos.EntryRepo
	profiles repos.UserProfileRepo
	jobs     JobService
}

func NewEntryService(db *gorm.DB, baseLog *logger.Logger, entries repos.EntryRepo, profiles repos.UserProfileRepo, jobs JobService) EntryService {
	return &entryService{
		db:       db,
		log:      baseLog.With("service", "EntryService"),
		entries:  entries,
		profiles: profiles,
		jobs:     jobs,
	}
}

func (s *entryService) Create(ctx context.Context, userID uuid.UUID, in CreateEntryInput) (*types.Entry, *types.JobRun, error) {
	if userID == uuid.Nil {
		return nil, nil, fmt.Errorf("missing user id: %w", errs.ErrInvalidArgument)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, nil, fmt.Errorf("entry text is empty: %w", errs.ErrInvalidArgument)
	}
	if len(text) > maxEntryTextLen {
		return nil, nil, fmt.Errorf("entry text is too long: %w", errs.ErrInvalidArgument)
	}

	entry := &types.Entry{
		ID:            uuid.New(),
		UserID:        userID,
		Text:          text,
		Category:      strings.ToLower(strings.TrimSpace(in.Category)),
		EffectiveDate: utcPtr(in.EffectiveDate),
	}
	entry.SetTags(in.Tags)
	if len(in.Analysis) > 0 && strings.TrimSpace(string(in.Analysis)) != "null" {
		a, err := journal.ParseAnalysis(in.Analysis)
		if err != nil {
			return nil, nil, fmt.Errorf("%v: %w", err, errs.ErrInvalidArgument)
		}
		entry.Analysis = datatypes.JSON(a.JSON())
	}

	var job *types.JobRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.profiles.Ensure(dbc, userID); err != nil {
			return fmt.Errorf("ensure profile: %w", err)
		}
		if _, err := s.entries.Create(dbc, []*types.Entry{entry}); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		entityID := entry.ID
		j, err := s.jobs.Enqueue(dbc, userID, JobTypeEntryCreated, "entry", &entityID, map[string]any{
			"entry_id": entry.ID.String(),
		})
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(ctx, job)
	return entry, job, nil
}

func (s *entryService) AttachAnalysis(ctx context.Context, userID, entryID uuid.UUID, raw json.RawMessage) (*types.Entry, *types.JobRun, error) {
	a, err := journal.ParseAnalysis(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, errs.ErrInvalidArgument)
	}

	var (
		entry *types.Entry
		job   *types.JobRun
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		cur, err := s.entries.GetByID(dbc, userID, entryID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("entry %s: %w", entryID, errs.ErrNotFound)
		}
		before := TrackedFieldsOf(cur.ParsedAnalysis())
		now := time.Now().UTC()
		if err := s.entries.UpdateFields(dbc, userID, entryID, map[string]interface{}{
			"analysis":   datatypes.JSON(a.JSON()),
			"updated_at": now,
		}); err != nil {
			return fmt.Errorf("attach analysis: %w", err)
		}
		cur.Analysis = datatypes.JSON(a.JSON())
		cur.UpdatedAt = now
		entry = cur

		entityID := entryID
		j, err := s.jobs.Enqueue(dbc, userID, JobTypeEntryUpdated, "entry", &entityID, map[string]any{
			"entry_id":        entryID.String(),
			"had_goal_update": before.GoalUpdate,
			"had_mood_score":  before.MoodScore,
		})
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(ctx, job)
	return entry, job, nil
}

func (s *entryService) Update(ctx context.Context, userID, entryID uuid.UUID, in UpdateEntryInput) (*types.Entry, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cur, err := s.entries.GetByID(dbc, userID, entryID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("entry %s: %w", entryID, errs.ErrNotFound)
	}

	updates := map[string]interface{}{}
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" || len(text) > maxEntryTextLen {
			return nil, fmt.Errorf("invalid entry text: %w", errs.ErrInvalidArgument)
		}
		cur.Text = text
		updates["text"] = text
	}
	if in.Category != nil {
		cur.Category = strings.ToLower(strings.TrimSpace(*in.Category))
		updates["category"] = cur.Category
	}
	if in.Tags != nil {
		cur.SetTags(*in.Tags)
		updates["tags"] = cur.Tags
	}
	if in.EffectiveDate != nil {
		cur.EffectiveDate = utcPtr(in.EffectiveDate)
		updates["effective_date"] = cur.EffectiveDate
	}
	if len(updates) == 0 {
		return cur, nil
	}
	cur.UpdatedAt = time.Now().UTC()
	updates["updated_at"] = cur.UpdatedAt
	if err := s.entries.UpdateFields(dbc, userID, entryID, updates); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return cur, nil
}

func (s *entryService) Get(ctx context.Context, userID, entryID uuid.UUID) (*types.Entry, error) {
	e, err := s.entries.GetByID(dbctx.Context{Ctx: ctx}, userID, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("entry %s: %w", entryID, errs.ErrNotFound)
	}
	return e, nil
}

func (s *entryService) List(ctx context.Context, userID uuid.UUID, before *time.Time, limit int) ([]*types.Entry, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return s.entries.ListPage(dbctx.Context{Ctx: ctx}, userID, before, limit)
}

func (s *entryService) dispatch(ctx context.Context, job *types.JobRun) {
	if job == nil {
		return
	}
	if err := s.jobs.Dispatch(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
		s.log.Warn("job dispatch failed", "job_id", job.ID, "job_type", job.JobType, "error", err)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
