package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

type ExclusionRepo interface {
	Create(dbc dbctx.Context, x *types.Exclusion) (*types.Exclusion, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Exclusion, error)
	// ListActive drops expired, non-permanent rows in the query itself.
	ListActive(dbc dbctx.Context, userID uuid.UUID, now time.Time) ([]*types.Exclusion, error)
	Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
}

type exclusionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExclusionRepo(db *gorm.DB, baseLog *logger.Logger) ExclusionRepo {
	return &exclusionRepo{
		db:  db,
		log: baseLog.With("repo", "ExclusionRepo"),
	}
}

func (r *exclusionRepo) Create(dbc dbctx.Context, x *types.Exclusion) (*types.Exclusion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if x == nil {
		return nil, nil
	}
	if x.ID == uuid.Nil {
		x.ID = uuid.New()
	}
	if x.CreatedAt.IsZero() {
		x.CreatedAt = time.Now().UTC()
	}
	if x.ExpiresAt != nil {
		exp := x.ExpiresAt.UTC()
		x.ExpiresAt = &exp
	}
	if err := t.WithContext(dbc.Ctx).Create(x).Error; err != nil {
		return nil, err
	}
	return x, nil
}

func (r *exclusionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Exclusion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Exclusion
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exclusionRepo) ListActive(dbc dbctx.Context, userID uuid.UUID, now time.Time) ([]*types.Exclusion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Exclusion
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND (permanent = ? OR expires_at > ?)", userID, true, now.UTC()).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exclusionRepo) Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&types.Exclusion{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
