package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Elevated levels are persisted to history on every assessment.
func (l RiskLevel) Elevated() bool { return l == RiskHigh || l == RiskCritical }

type BurnoutFactors struct {
	MoodTrajectory     float64 `json:"mood_trajectory"`
	FatigueKeywords    float64 `json:"fatigue_keywords"`
	OverworkIndicators float64 `json:"overwork_indicators"`
	PhysicalSymptoms   float64 `json:"physical_symptoms"`
	WorkTagDensity     float64 `json:"work_tag_density"`
	LowMoodStreak      float64 `json:"low_mood_streak"`
}

// Values lists the six sub-scores in declaration order.
func (f BurnoutFactors) Values() []float64 {
	return []float64{
		f.MoodTrajectory,
		f.FatigueKeywords,
		f.OverworkIndicators,
		f.PhysicalSymptoms,
		f.WorkTagDensity,
		f.LowMoodStreak,
	}
}

// BurnoutAssessment is the scorer output and the shape merged onto the user profile.
type BurnoutAssessment struct {
	RiskScore          float64         `json:"risk_score"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	Signals            []string        `json:"signals"`
	Factors            *BurnoutFactors `json:"factors,omitempty"`
	RecoveryDiscount   float64         `json:"recovery_discount,omitempty"`
	TriggerShelterMode bool            `json:"trigger_shelter_mode"`
	EntryCount         int             `json:"entry_count"`
	InsufficientData   bool            `json:"insufficient_data,omitempty"`
	AssessedAt         time.Time       `json:"assessed_at"`
}

const (
	BurnoutTriggerElevated = "elevated_risk"
	BurnoutTriggerOnDemand = "on_demand"
)

// BurnoutAssessmentRecord is an append-only history row.
type BurnoutAssessmentRecord struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index:idx_burnout_assessment_user_created,priority:1" json:"user_id"`
	RiskScore          float64        `gorm:"column:risk_score;not null" json:"risk_score"`
	RiskLevel          RiskLevel      `gorm:"column:risk_level;not null" json:"risk_level"`
	Signals            datatypes.JSON `gorm:"column:signals;type:jsonb" json:"signals"`
	Factors            datatypes.JSON `gorm:"column:factors;type:jsonb" json:"factors"`
	TriggerShelterMode bool           `gorm:"column:trigger_shelter_mode;not null" json:"trigger_shelter_mode"`
	EntryCount         int            `gorm:"column:entry_count;not null" json:"entry_count"`
	Trigger            string         `gorm:"column:trigger;not null" json:"trigger"`
	CreatedAt          time.Time      `gorm:"not null;index:idx_burnout_assessment_user_created,priority:2" json:"created_at"`
}

func (BurnoutAssessmentRecord) TableName() string { return "burnout_assessment" }

func NewBurnoutAssessmentRecord(userID uuid.UUID, a BurnoutAssessment, trigger string) *BurnoutAssessmentRecord {
	signals := a.Signals
	if signals == nil {
		signals = []string{}
	}
	return &BurnoutAssessmentRecord{
		ID:                 uuid.New(),
		UserID:             userID,
		RiskScore:          a.RiskScore,
		RiskLevel:          a.RiskLevel,
		Signals:            datatypes.JSON(mustJSON(signals)),
		Factors:            datatypes.JSON(mustJSON(a.Factors)),
		TriggerShelterMode: a.TriggerShelterMode,
		EntryCount:         a.EntryCount,
		Trigger:            trigger,
		CreatedAt:          a.AssessedAt.UTC(),
	}
}

// UserInsightProfile holds per-user rolling insight state. Its rows double as the registry of
// known users walked by the daily sweep.
type UserInsightProfile struct {
	UserID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	LatestBurnout    datatypes.JSON `gorm:"column:latest_burnout;type:jsonb" json:"latest_burnout,omitempty"`
	BurnoutRiskLevel string         `gorm:"column:burnout_risk_level" json:"burnout_risk_level,omitempty"`
	ShelterMode      bool           `gorm:"column:shelter_mode;not null;default:false" json:"shelter_mode"`
	BurnoutUpdatedAt *time.Time     `gorm:"column:burnout_updated_at" json:"burnout_updated_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (UserInsightProfile) TableName() string { return "user_insight_profile" }

func (p *UserInsightProfile) Burnout() *BurnoutAssessment {
	if p == nil || len(p.LatestBurnout) == 0 {
		return nil
	}
	var a BurnoutAssessment
	if err := json.Unmarshal(p.LatestBurnout, &a); err != nil {
		return nil
	}
	return &a
}
