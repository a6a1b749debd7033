package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SignalTypeGoal  = "goal"
	MaxStateHistory = 20
)

type GoalState string

const (
	GoalProposed  GoalState = "proposed"
	GoalActive    GoalState = "active"
	GoalPaused    GoalState = "paused"
	GoalAchieved  GoalState = "achieved"
	GoalAbandoned GoalState = "abandoned"
)

// Terminal states never transition again.
func (s GoalState) Terminal() bool {
	return s == GoalAchieved || s == GoalAbandoned
}

// Open reports whether the goal is still expected to see activity.
func (s GoalState) Open() bool {
	return s == GoalProposed || s == GoalActive
}

type UpdateType string

const (
	UpdateNew         UpdateType = "new"
	UpdateMention     UpdateType = "mention"
	UpdateProgress    UpdateType = "progress"
	UpdateAchievement UpdateType = "achievement"
	UpdateTermination UpdateType = "termination"
	UpdateUserAction  UpdateType = "user_action"
)

// StateRecord is one entry in a goal's append-only history.
type StateRecord struct {
	State      GoalState  `json:"state"`
	From       GoalState  `json:"from,omitempty"`
	UpdateType UpdateType `json:"update_type"`
	EntryID    string     `json:"entry_id,omitempty"`
	Context    string     `json:"context,omitempty"`
	At         time.Time  `json:"at"`
}

// SignalState is the persisted lifecycle record for a detected goal. It is the only source of
// truth for goal status; it is never re-derived from entries.
type SignalState struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_signal_state_user_type_topic,priority:1" json:"user_id"`
	Type          string         `gorm:"column:type;not null;uniqueIndex:idx_signal_state_user_type_topic,priority:2" json:"type"`
	Topic         string         `gorm:"column:topic;not null;uniqueIndex:idx_signal_state_user_type_topic,priority:3" json:"topic"`
	DisplayName   string         `gorm:"column:display_name;not null" json:"display_name"`
	State         GoalState      `gorm:"column:state;not null;index" json:"state"`
	StateHistory  datatypes.JSON `gorm:"column:state_history;type:jsonb" json:"state_history"`
	SourceEntries datatypes.JSON `gorm:"column:source_entries;type:jsonb" json:"source_entries"`
	Version       int64          `gorm:"column:version;not null;default:1" json:"version"`
	LastUpdated   time.Time      `gorm:"column:last_updated;not null;index" json:"last_updated"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (SignalState) TableName() string { return "signal_state" }

func (s *SignalState) History() []StateRecord {
	if s == nil || len(s.StateHistory) == 0 {
		return nil
	}
	var out []StateRecord
	if err := json.Unmarshal(s.StateHistory, &out); err != nil {
		return nil
	}
	return out
}

func (s *SignalState) SetHistory(h []StateRecord) {
	s.StateHistory = datatypes.JSON(mustJSON(h))
}

func (s *SignalState) Sources() []string {
	if s == nil || len(s.SourceEntries) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(s.SourceEntries, &out); err != nil {
		return nil
	}
	return out
}

func (s *SignalState) SetSources(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	s.SourceEntries = datatypes.JSON(mustJSON(ids))
}

// AppendHistory appends rec and applies the head+tail cap: the creation record is always kept,
// followed by the newest max-1 records.
func AppendHistory(h []StateRecord, rec StateRecord, max int) []StateRecord {
	out := append(append(make([]StateRecord, 0, len(h)+1), h...), rec)
	if max <= 0 || len(out) <= max {
		return out
	}
	if max == 1 {
		return out[:1]
	}
	capped := make([]StateRecord, 0, max)
	capped = append(capped, out[0])
	capped = append(capped, out[len(out)-(max-1):]...)
	return capped
}

// UnionSource appends id when missing.
func UnionSource(ids []string, id string) []string {
	if id == "" {
		return ids
	}
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
