package journal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

// SignalStateRepo is the goal lifecycle store. Writes after creation go through
// UpdateIfVersion so concurrent read-modify-write cycles cannot silently overwrite each other.
type SignalStateRepo interface {
	GetByTopic(dbc dbctx.Context, userID uuid.UUID, signalType, topic string) (*types.SignalState, error)
	GetByID(dbc dbctx.Context, userID, id uuid.UUID) (*types.SignalState, error)
	ListByStates(dbc dbctx.Context, userID uuid.UUID, signalType string, states []types.GoalState) ([]*types.SignalState, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, signalType string) ([]*types.SignalState, error)
	// Create returns errs.ErrConflict when (user_id, type, topic) already exists.
	Create(dbc dbctx.Context, state *types.SignalState) error
	// UpdateIfVersion writes state when the stored version still equals expected and bumps it.
	// It reports false when another writer got there first.
	UpdateIfVersion(dbc dbctx.Context, state *types.SignalState, expected int64) (bool, error)
}

type signalStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSignalStateRepo(db *gorm.DB, baseLog *logger.Logger) SignalStateRepo {
	return &signalStateRepo{
		db:  db,
		log: baseLog.With("repo", "SignalStateRepo"),
	}
}

func (r *signalStateRepo) GetByTopic(dbc dbctx.Context, userID uuid.UUID, signalType, topic string) (*types.SignalState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || signalType == "" || topic == "" {
		return nil, nil
	}
	var s types.SignalState
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND type = ? AND topic = ?", userID, signalType, topic).
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *signalStateRepo) GetByID(dbc dbctx.Context, userID, id uuid.UUID) (*types.SignalState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var s types.SignalState
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *signalStateRepo) ListByStates(dbc dbctx.Context, userID uuid.UUID, signalType string, states []types.GoalState) ([]*types.SignalState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.SignalState
	if userID == uuid.Nil || len(states) == 0 {
		return out, nil
	}
	names := make([]string, 0, len(states))
	for _, st := range states {
		names = append(names, string(st))
	}
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND type = ? AND state IN ?", userID, signalType, names).
		Order("last_updated DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalStateRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, signalType string) ([]*types.SignalState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.SignalState
	if userID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND type = ?", userID, signalType).
		Order("last_updated DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalStateRepo) Create(dbc dbctx.Context, state *types.SignalState) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if state == nil {
		return nil
	}
	if state.ID == uuid.Nil {
		state.ID = uuid.New()
	}
	if state.Version == 0 {
		state.Version = 1
	}
	if err := t.WithContext(dbc.Ctx).Create(state).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("signal state %s/%s: %w", state.Type, state.Topic, errs.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *signalStateRepo) UpdateIfVersion(dbc dbctx.Context, state *types.SignalState, expected int64) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if state == nil || state.ID == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.SignalState{}).
		Where("id = ? AND user_id = ? AND version = ?", state.ID, state.UserID, expected).
		Updates(map[string]interface{}{
			"state":          string(state.State),
			"display_name":   state.DisplayName,
			"state_history":  state.StateHistory,
			"source_entries": state.SourceEntries,
			"last_updated":   state.LastUpdated,
			"version":        expected + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Debug("signal state version moved", "signal_state_id", state.ID, "expected_version", expected)
		return false, nil
	}
	state.Version = expected + 1
	return true, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
