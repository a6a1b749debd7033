package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

type PatternRepo interface {
	// ReplaceAll upserts every document in one transaction. A document is only replaced when
	// its computed_at is not older than the stored one; applied counts the rows written.
	ReplaceAll(dbc dbctx.Context, docs []*types.PatternDocument) (int, error)
	GetByScope(dbc dbctx.Context, userID uuid.UUID, scope string) ([]*types.PatternDocument, error)
	Get(dbc dbctx.Context, userID uuid.UUID, kind types.PatternKind, scope string) (*types.PatternDocument, error)
}

type patternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternRepo(db *gorm.DB, baseLog *logger.Logger) PatternRepo {
	return &patternRepo{
		db:  db,
		log: baseLog.With("repo", "PatternRepo"),
	}
}

func (r *patternRepo) ReplaceAll(dbc dbctx.Context, docs []*types.PatternDocument) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(docs) == 0 {
		return 0, nil
	}
	applied := 0
	err := t.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		applied = 0
		now := time.Now().UTC()
		for _, d := range docs {
			if d == nil || d.UserID == uuid.Nil {
				continue
			}
			d.Version = 1
			d.UpdatedAt = now
			d.ComputedAt = d.ComputedAt.UTC()
			set := clause.AssignmentColumns([]string{"data", "entry_count", "computed_at", "updated_at"})
			set = append(set, clause.Assignment{
				Column: clause.Column{Name: "version"},
				Value:  gorm.Expr("pattern_document.version + 1"),
			})
			res := txx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}, {Name: "scope"}},
				DoUpdates: set,
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: "pattern_document.computed_at <= excluded.computed_at"},
				}},
			}).Create(d)
			if res.Error != nil {
				return res.Error
			}
			applied += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if applied < len(docs) {
		r.log.Debug("stale pattern documents skipped", "written", applied, "requested", len(docs))
	}
	return applied, nil
}

func (r *patternRepo) GetByScope(dbc dbctx.Context, userID uuid.UUID, scope string) ([]*types.PatternDocument, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.PatternDocument
	if userID == uuid.Nil || scope == "" {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND scope = ?", userID, scope).
		Order("kind ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *patternRepo) Get(dbc dbctx.Context, userID uuid.UUID, kind types.PatternKind, scope string) (*types.PatternDocument, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || kind == "" || scope == "" {
		return nil, nil
	}
	var d types.PatternDocument
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND kind = ? AND scope = ?", userID, string(kind), scope).
		Limit(1).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.UserID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}
