package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

type EntryRepo interface {
	Create(dbc dbctx.Context, entries []*types.Entry) ([]*types.Entry, error)
	GetByID(dbc dbctx.Context, userID, id uuid.UUID) (*types.Entry, error)
	// ListRecent returns the newest entries first. An empty category means every category.
	ListRecent(dbc dbctx.Context, userID uuid.UUID, category string, limit int) ([]*types.Entry, error)
	ListPage(dbc dbctx.Context, userID uuid.UUID, before *time.Time, limit int) ([]*types.Entry, error)
	// ListCategories returns the distinct non-empty categories the user has written under, sorted.
	ListCategories(dbc dbctx.Context, userID uuid.UUID) ([]string, error)
	UpdateFields(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) error
}

type entryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntryRepo(db *gorm.DB, baseLog *logger.Logger) EntryRepo {
	return &entryRepo{
		db:  db,
		log: baseLog.With("repo", "EntryRepo"),
	}
}

func (r *entryRepo) Create(dbc dbctx.Context, entries []*types.Entry) ([]*types.Entry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(entries) == 0 {
		return []*types.Entry{}, nil
	}
	now := time.Now().UTC()
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}
		if len(e.Tags) == 0 {
			e.SetTags(nil)
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *entryRepo) GetByID(dbc dbctx.Context, userID, id uuid.UUID) (*types.Entry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var e types.Entry
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

func (r *entryRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, category string, limit int) ([]*types.Entry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Entry
	if userID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("user_id = ?", userID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) ListPage(dbc dbctx.Context, userID uuid.UUID, before *time.Time, limit int) ([]*types.Entry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Entry
	if userID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("user_id = ?", userID)
	if before != nil && !before.IsZero() {
		q = q.Where("created_at < ?", before.UTC())
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) ListCategories(dbc dbctx.Context, userID uuid.UUID) ([]string, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []string{}
	if userID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.Entry{}).
		Where("user_id = ? AND category <> ''", userID).
		Distinct().
		Order("category").
		Pluck("category", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) UpdateFields(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Entry{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates).Error
}
