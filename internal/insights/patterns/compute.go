package patterns

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/exclusion"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
)

const (
	DefaultWindow     = 200
	DefaultMinEntries = 5
)

// Bundle is one complete pattern run. Its four families are persisted together.
type Bundle struct {
	Scope             string                        `json:"scope"`
	EntryCount        int                           `json:"entry_count"`
	ComputedAt        time.Time                     `json:"computed_at"`
	ActivitySentiment journal.ActivitySentimentData `json:"activity_sentiment"`
	Temporal          journal.TemporalPatterns      `json:"temporal"`
	Contradictions    journal.ContradictionsData    `json:"contradictions"`
	Summary           journal.SummaryData           `json:"summary"`
}

type ComputeOptions struct {
	Now        time.Time
	Location   *time.Location
	Lexicon    *lexicon.Lexicon
	Scope      string
	MinEntries int
}

// Qualifying keeps analyzed entries and orders them oldest first.
func Qualifying(entries []journal.Snapshot) []journal.Snapshot {
	out := make([]journal.Snapshot, 0, len(entries))
	for _, e := range entries {
		if e.Analysis != nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Compute runs every pattern family over entries. It returns nil when fewer than MinEntries
// analyzed entries are available. Exclusions are applied to activity sentiment and
// contradictions before the summary is built.
func Compute(entries []journal.Snapshot, states []*journal.SignalState, exclusions []*journal.Exclusion, opts ComputeOptions) *Bundle {
	if opts.Lexicon == nil {
		opts.Lexicon = lexicon.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Scope == "" {
		opts.Scope = journal.ScopeAll
	}
	if opts.MinEntries <= 0 {
		opts.MinEntries = DefaultMinEntries
	}

	q := Qualifying(entries)
	if len(q) < opts.MinEntries {
		return nil
	}

	activity := ActivitySentiment(opts.Lexicon, q)
	temporal := Temporal(q, opts.Location)

	contradictions := GoalAbandonment(states, opts.Now)
	contradictions = append(contradictions, SentimentContradictions(opts.Lexicon, q, activity.Patterns)...)
	contradictions = append(contradictions, AvoidanceContradictions(opts.Lexicon, q)...)

	activity.Patterns = exclusion.ActivityPatterns(activity.Patterns, exclusions, opts.Now)
	contradictions = exclusion.Contradictions(contradictions, exclusions, opts.Now)

	return &Bundle{
		Scope:             opts.Scope,
		EntryCount:        len(q),
		ComputedAt:        opts.Now.UTC(),
		ActivitySentiment: activity,
		Temporal:          temporal,
		Contradictions:    journal.ContradictionsData{Items: contradictions},
		Summary:           BuildSummary(activity.Patterns, temporal, contradictions),
	}
}

// Documents renders the bundle as the four pattern documents written in one batch.
func (b *Bundle) Documents(userID uuid.UUID) ([]*journal.PatternDocument, error) {
	payloads := map[journal.PatternKind]any{
		journal.PatternActivitySentiment: b.ActivitySentiment,
		journal.PatternTemporal:          b.Temporal,
		journal.PatternContradictions:    b.Contradictions,
		journal.PatternSummary:           b.Summary,
	}
	out := make([]*journal.PatternDocument, 0, len(journal.PatternKinds))
	for _, kind := range journal.PatternKinds {
		data, err := json.Marshal(payloads[kind])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", kind, err)
		}
		out = append(out, &journal.PatternDocument{
			UserID:     userID,
			Kind:       kind,
			Scope:      b.Scope,
			EntryCount: b.EntryCount,
			ComputedAt: b.ComputedAt,
			Data:       datatypes.JSON(data),
		})
	}
	return out, nil
}
