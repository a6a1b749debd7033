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

type BurnoutRepo interface {
	AppendHistory(dbc dbctx.Context, rec *types.BurnoutAssessmentRecord) error
	ListHistory(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.BurnoutAssessmentRecord, error)
}

type burnoutRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBurnoutRepo(db *gorm.DB, baseLog *logger.Logger) BurnoutRepo {
	return &burnoutRepo{
		db:  db,
		log: baseLog.With("repo", "BurnoutRepo"),
	}
}

func (r *burnoutRepo) AppendHistory(dbc dbctx.Context, rec *types.BurnoutAssessmentRecord) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if rec == nil {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).Create(rec).Error
}

func (r *burnoutRepo) ListHistory(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.BurnoutAssessmentRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.BurnoutAssessmentRecord
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UserProfileRepo manages user_insight_profile. Every user that ever wrote an entry has a row.
type UserProfileRepo interface {
	Ensure(dbc dbctx.Context, userID uuid.UUID) error
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserInsightProfile, error)
	MergeLatestBurnout(dbc dbctx.Context, userID uuid.UUID, a types.BurnoutAssessment) error
	// ListUserIDs pages through known users ordered by id.
	ListUserIDs(dbc dbctx.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{
		db:  db,
		log: baseLog.With("repo", "UserProfileRepo"),
	}
}

func (r *userProfileRepo) Ensure(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	row := &types.UserInsightProfile{UserID: userID, CreatedAt: now, UpdatedAt: now}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error
}

func (r *userProfileRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserInsightProfile, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var p types.UserInsightProfile
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&p).Error; err != nil {
		return nil, err
	}
	if p.UserID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *userProfileRepo) MergeLatestBurnout(dbc dbctx.Context, userID uuid.UUID, a types.BurnoutAssessment) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	assessedAt := a.AssessedAt.UTC()
	row := &types.UserInsightProfile{
		UserID:           userID,
		LatestBurnout:    mustJSON(a),
		BurnoutRiskLevel: string(a.RiskLevel),
		ShelterMode:      a.TriggerShelterMode,
		BurnoutUpdatedAt: &assessedAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"latest_burnout",
				"burnout_risk_level",
				"shelter_mode",
				"burnout_updated_at",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *userProfileRepo) ListUserIDs(dbc dbctx.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	q := t.WithContext(dbc.Ctx).Model(&types.UserInsightProfile{})
	if after != uuid.Nil {
		q = q.Where("user_id > ?", after)
	}
	var out []uuid.UUID
	if err := q.Order("user_id ASC").Limit(limit).Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
