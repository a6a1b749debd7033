package journal

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entry is one journal entry. Analysis is attached once by the external classifier.
type Entry struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_journal_entry_user_created,priority:1" json:"user_id"`
	Text          string         `gorm:"column:text;type:text;not null" json:"text"`
	Category      string         `gorm:"column:category;index" json:"category,omitempty"`
	Tags          datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	Analysis      datatypes.JSON `gorm:"column:analysis;type:jsonb" json:"analysis,omitempty"`
	EffectiveDate *time.Time     `gorm:"column:effective_date" json:"effective_date,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_journal_entry_user_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Entry) TableName() string { return "journal_entry" }

// EffectiveAt is the moment the entry describes.
func (e *Entry) EffectiveAt() time.Time {
	if e.EffectiveDate != nil && !e.EffectiveDate.IsZero() {
		return *e.EffectiveDate
	}
	return e.CreatedAt
}

func (e *Entry) TagList() []string {
	if e == nil || len(e.Tags) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(e.Tags, &out); err != nil {
		return nil
	}
	return out
}

// SetTags normalizes and de-duplicates tags before storing them.
func (e *Entry) SetTags(tags []string) {
	e.Tags = datatypes.JSON(mustJSON(NormalizeTags(tags)))
}

// ParsedAnalysis returns the validated analysis, or nil when none is attached or it is unreadable.
func (e *Entry) ParsedAnalysis() *Analysis {
	if e == nil || len(e.Analysis) == 0 {
		return nil
	}
	a, err := ParseAnalysis(e.Analysis)
	if err != nil {
		return nil
	}
	return a
}

// Snapshot is a decoded, read-only view of an entry used by the insight engines.
type Snapshot struct {
	ID       uuid.UUID
	Text     string
	Lower    string
	Tags     []string
	At       time.Time
	Analysis *Analysis
}

func (e *Entry) Snapshot() Snapshot {
	s := Snapshot{
		ID:       e.ID,
		Text:     e.Text,
		Lower:    strings.ToLower(e.Text),
		Tags:     e.TagList(),
		At:       e.EffectiveAt(),
		Analysis: e.ParsedAnalysis(),
	}
	if s.Analysis != nil && len(s.Analysis.Tags) > 0 {
		s.Tags = NormalizeTags(append(append([]string{}, s.Tags...), s.Analysis.Tags...))
	}
	return s
}

// Mood returns the classifier mood score when present.
func (s Snapshot) Mood() (float64, bool) {
	if s.Analysis == nil || s.Analysis.MoodScore == nil {
		return 0, false
	}
	return *s.Analysis.MoodScore, true
}

func (s Snapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Snapshots converts entries in order.
func Snapshots(entries []*Entry) []Snapshot {
	out := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		out = append(out, e.Snapshot())
	}
	return out
}

// NormalizeTag lowercases and trims a tag. Namespaced tags keep the "@ns:value" shape.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	if ns, val, ok := SplitTag(tag); ok {
		return "@" + ns + ":" + val
	}
	return tag
}

func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SplitTag splits "@ns:value" into its namespace and value.
func SplitTag(tag string) (string, string, bool) {
	if !strings.HasPrefix(tag, "@") {
		return "", "", false
	}
	rest := tag[1:]
	i := strings.Index(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	ns := strings.TrimSpace(rest[:i])
	val := strings.TrimSpace(rest[i+1:])
	if ns == "" || val == "" {
		return "", "", false
	}
	return ns, val, true
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
