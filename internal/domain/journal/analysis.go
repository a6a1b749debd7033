package journal

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const DefaultEntryType = "reflection"

// GoalUpdate is the classifier's structured goal signal for an entry.
type GoalUpdate struct {
	Tag    string `json:"tag"`
	Status string `json:"status"`
}

// Analysis is the validated classifier output. Every field has a defined zero value so
// downstream code never inspects the raw provider payload.
type Analysis struct {
	MoodScore  *float64    `json:"mood_score"`
	EntryType  string      `json:"entry_type"`
	Framework  string      `json:"framework,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	GoalUpdate *GoalUpdate `json:"goal_update,omitempty"`
}

type rawAnalysis struct {
	MoodScore  json.RawMessage `json:"mood_score"`
	EntryType  any             `json:"entry_type"`
	Framework  any             `json:"framework"`
	Tags       json.RawMessage `json:"tags"`
	GoalUpdate json.RawMessage `json:"goal_update"`
}

// ParseAnalysis validates a provider payload. Mood accepts numbers or numeric strings and is
// clamped to [0,1]; non-finite values become nil. Unknown fields are ignored.
func ParseAnalysis(raw []byte) (*Analysis, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("analysis: empty payload")
	}
	var r rawAnalysis
	if err := json.Unmarshal([]byte(trimmed), &r); err != nil {
		return nil, fmt.Errorf("analysis: decode: %w", err)
	}
	out := &Analysis{
		MoodScore: parseMood(r.MoodScore),
		EntryType: strings.ToLower(stringOr(r.EntryType, DefaultEntryType)),
		Framework: strings.ToLower(stringOr(r.Framework, "")),
		Tags:      parseTags(r.Tags),
	}
	out.GoalUpdate = parseGoalUpdate(r.GoalUpdate)
	return out, nil
}

// JSON encodes the strict shape so the stored payload is canonical.
func (a *Analysis) JSON() []byte {
	return mustJSON(a)
}

func parseMood(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil
		}
		f = v
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Max(0, math.Min(1, f))
	return &f
}

func parseTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	tags := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			tags = append(tags, s)
		}
	}
	out := NormalizeTags(tags)
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseGoalUpdate(raw json.RawMessage) *GoalUpdate {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	tag := strings.TrimSpace(stringOr(m["tag"], ""))
	tag = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(tag), "@goal:"), "@")
	if tag == "" {
		return nil
	}
	return &GoalUpdate{
		Tag:    tag,
		Status: strings.ToLower(strings.TrimSpace(stringOr(m["status"], ""))),
	}
}

func stringOr(v any, def string) string {
	s, ok := v.(string)
	if !ok {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
