package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PatternKind string

const (
	PatternActivitySentiment PatternKind = "activity_sentiment"
	PatternTemporal          PatternKind = "temporal"
	PatternContradictions    PatternKind = "contradictions"
	PatternSummary           PatternKind = "summary"
)

// PatternKinds lists every document written by one pattern run.
var PatternKinds = []PatternKind{
	PatternActivitySentiment,
	PatternTemporal,
	PatternContradictions,
	PatternSummary,
}

// ScopeAll keys the documents of an unfiltered run. Category runs use the category as scope.
const ScopeAll = "all"

// PatternDocument is one full-replace snapshot of a derived analytic.
type PatternDocument struct {
	UserID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	Kind       PatternKind    `gorm:"column:kind;primaryKey" json:"kind"`
	Scope      string         `gorm:"column:scope;primaryKey" json:"scope"`
	Version    int64          `gorm:"column:version;not null;default:1" json:"version"`
	EntryCount int            `gorm:"column:entry_count;not null" json:"entry_count"`
	ComputedAt time.Time      `gorm:"column:computed_at;not null" json:"computed_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	Data       datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
}

func (PatternDocument) TableName() string { return "pattern_document" }

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// ActivityPattern is the mood association of one tagged entity.
type ActivityPattern struct {
	Entity       string  `json:"entity"`
	EntityType   string  `json:"entity_type"`
	Tag          string  `json:"tag"`
	AvgMood      float64 `json:"avg_mood"`
	Baseline     float64 `json:"baseline"`
	Delta        float64 `json:"delta"`
	DeltaPercent float64 `json:"delta_percent"`
	Mentions     int     `json:"mentions"`
	Sentiment    string  `json:"sentiment"`
	Message      string  `json:"message,omitempty"`
}

// PatternType derives the exclusion type from the sentiment.
func (p ActivityPattern) PatternType() string { return "activity_" + p.Sentiment }

type ActivitySentimentData struct {
	Baseline float64           `json:"baseline"`
	Patterns []ActivityPattern `json:"patterns"`
}

type TemporalBucket struct {
	Key     string  `json:"key"`
	AvgMood float64 `json:"avg_mood"`
	Count   int     `json:"count"`
}

type TemporalPatterns struct {
	DayOfWeek       []TemporalBucket `json:"day_of_week"`
	TimeOfDay       []TemporalBucket `json:"time_of_day"`
	BestDay         *TemporalBucket  `json:"best_day,omitempty"`
	WorstDay        *TemporalBucket  `json:"worst_day,omitempty"`
	BestDayInsight  string           `json:"best_day_insight,omitempty"`
	WorstDayInsight string           `json:"worst_day_insight,omitempty"`
}

const (
	ContradictionGoalAbandonment = "goal_abandonment"
	ContradictionSentiment       = "sentiment_contradiction"
	ContradictionAvoidance       = "avoidance_contradiction"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type ContradictionAction struct {
	Action string `json:"action"`
	Label  string `json:"label"`
}

// Contradiction is a mismatch between stated intent or sentiment and observed behavior.
type Contradiction struct {
	Type            string                `json:"type"`
	Severity        string                `json:"severity"`
	Message         string                `json:"message"`
	Topic           string                `json:"topic,omitempty"`
	Entity          string                `json:"entity,omitempty"`
	EntityType      string                `json:"entity_type,omitempty"`
	SignalStateID   string                `json:"signal_state_id,omitempty"`
	EntryIDs        []string              `json:"entry_ids,omitempty"`
	DaysSinceUpdate int                   `json:"days_since_update,omitempty"`
	Actions         []ContradictionAction `json:"actions,omitempty"`
}

func (c Contradiction) PatternType() string { return c.Type }

type ContradictionsData struct {
	Items []Contradiction `json:"items"`
}

type SummaryItem struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

type SummaryData struct {
	Items []SummaryItem `json:"items"`
}
