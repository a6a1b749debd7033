package patterns

import (
	"fmt"
	"sort"
	"time"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
)

const (
	abandonAfterDays       = 14
	abandonHighAfterDays   = 30
	sentimentMinMentions   = 3
	avoidanceLaterMentions = 2
	avoidancePositiveFloor = 0.6
)

// GoalAbandonment flags open goals nobody has touched in a while. Goal status comes only from
// the stored signal states, so a finished goal can never reappear here.
func GoalAbandonment(states []*journal.SignalState, now time.Time) []journal.Contradiction {
	out := []journal.Contradiction{}
	for _, s := range states {
		if s == nil || !s.State.Open() {
			continue
		}
		days := int(now.Sub(s.LastUpdated).Hours() / 24)
		if days <= abandonAfterDays {
			continue
		}
		severity := journal.SeverityMedium
		if days > abandonHighAfterDays {
			severity = journal.SeverityHigh
		}
		out = append(out, journal.Contradiction{
			Type:            journal.ContradictionGoalAbandonment,
			Severity:        severity,
			Message:         fmt.Sprintf("You haven't mentioned %q in %d days. Is it still something you want?", s.DisplayName, days),
			Topic:           s.Topic,
			SignalStateID:   s.ID.String(),
			DaysSinceUpdate: days,
			Actions: []journal.ContradictionAction{
				{Action: "reactivate", Label: "Still working on it"},
				{Action: "achieve", Label: "I did it"},
				{Action: "abandon", Label: "Let it go"},
			},
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysSinceUpdate != out[j].DaysSinceUpdate {
			return out[i].DaysSinceUpdate > out[j].DaysSinceUpdate
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// mentions reports whether an entry is about the entity, by tag or by name in the text.
func mentions(s journal.Snapshot, tag, value string) bool {
	if s.HasTag(tag) {
		return true
	}
	return lexicon.ContainsWord(lexicon.Normalize(s.Text), displayEntity(value))
}

// SentimentContradictions flags negative writing about an entity whose mood association is
// positive. entries must be oldest first.
func SentimentContradictions(lex *lexicon.Lexicon, entries []journal.Snapshot, activity []journal.ActivityPattern) []journal.Contradiction {
	out := []journal.Contradiction{}
	for _, p := range activity {
		if p.Sentiment != journal.SentimentPositive || p.Mentions < sentimentMinMentions {
			continue
		}
		for _, e := range entries {
			if !lex.Matches(lexicon.NegativeSentiment, e.Text) || !mentions(e, p.Tag, p.Entity) {
				continue
			}
			out = append(out, journal.Contradiction{
				Type:       journal.ContradictionSentiment,
				Severity:   journal.SeverityLow,
				Message:    fmt.Sprintf("You've written negatively about %s, yet your mood is usually better when it's part of your day.", displayEntity(p.Entity)),
				Entity:     p.Entity,
				EntityType: p.EntityType,
				EntryIDs:   []string{e.ID.String()},
			})
			break
		}
	}
	return out
}

// AvoidanceContradictions flags an intent to avoid a food, activity or media entity followed by
// repeated happy mentions of it. entries must be oldest first.
func AvoidanceContradictions(lex *lexicon.Lexicon, entries []journal.Snapshot) []journal.Contradiction {
	seen := map[string]bool{}
	var refs []entityRef
	for _, e := range entries {
		for _, ref := range entityTags(lex, e) {
			if !lex.IsAvoidableNamespace(ref.ns) || seen[ref.tag] {
				continue
			}
			seen[ref.tag] = true
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].tag < refs[j].tag })

	out := []journal.Contradiction{}
	for _, ref := range refs {
		for i, e := range entries {
			if !lex.Matches(lexicon.Avoidance, e.Text) || !mentions(e, ref.tag, ref.value) {
				continue
			}
			ids := []string{e.ID.String()}
			for _, later := range entries[i+1:] {
				if !later.At.After(e.At) || !mentions(later, ref.tag, ref.value) {
					continue
				}
				if m, ok := later.Mood(); ok && m > avoidancePositiveFloor {
					ids = append(ids, later.ID.String())
				}
			}
			if len(ids)-1 < avoidanceLaterMentions {
				continue
			}
			out = append(out, journal.Contradiction{
				Type:       journal.ContradictionAvoidance,
				Severity:   journal.SeverityMedium,
				Message:    fmt.Sprintf("You wanted to avoid %s, but you've mentioned it %d times since, usually in a good mood.", displayEntity(ref.value), len(ids)-1),
				Entity:     ref.value,
				EntityType: ref.ns,
				EntryIDs:   ids,
			})
			break
		}
	}
	return out
}
