package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
)

const (
	sentimentThreshold   = 0.10
	insightPercentCutoff = 10.0
	minEntityMentions    = 2
	maxActivityPatterns  = 50
)

type entityRef struct {
	tag   string
	ns    string
	value string
}

// entityTags returns the namespaced entity tags of an entry, skipping control namespaces.
func entityTags(lex *lexicon.Lexicon, s journal.Snapshot) []entityRef {
	var out []entityRef
	for _, tag := range s.Tags {
		ns, val, ok := journal.SplitTag(tag)
		if !ok || lex.IsControlNamespace(ns) {
			continue
		}
		out = append(out, entityRef{tag: tag, ns: ns, value: val})
	}
	return out
}

// Baseline is the average mood over every entry that has one.
func Baseline(entries []journal.Snapshot) (float64, int) {
	sum, n := 0.0, 0
	for _, e := range entries {
		if m, ok := e.Mood(); ok {
			sum += m
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// ActivitySentiment associates each entity tag with the mood of the entries mentioning it.
func ActivitySentiment(lex *lexicon.Lexicon, entries []journal.Snapshot) journal.ActivitySentimentData {
	baseline, moodCount := Baseline(entries)
	out := journal.ActivitySentimentData{Baseline: round(baseline), Patterns: []journal.ActivityPattern{}}
	if moodCount == 0 {
		return out
	}

	type acc struct {
		ref entityRef
		sum float64
		n   int
	}
	byTag := map[string]*acc{}
	for _, e := range entries {
		m, ok := e.Mood()
		if !ok {
			continue
		}
		for _, ref := range entityTags(lex, e) {
			a := byTag[ref.tag]
			if a == nil {
				a = &acc{ref: ref}
				byTag[ref.tag] = a
			}
			a.sum += m
			a.n++
		}
	}

	for _, a := range byTag {
		if a.n < minEntityMentions {
			continue
		}
		avg := a.sum / float64(a.n)
		delta := avg - baseline
		pct := 0.0
		if baseline > 0 {
			pct = delta / baseline * 100
		}
		p := journal.ActivityPattern{
			Entity:       a.ref.value,
			EntityType:   a.ref.ns,
			Tag:          a.ref.tag,
			AvgMood:      round(avg),
			Baseline:     round(baseline),
			Delta:        round(delta),
			DeltaPercent: round(pct),
			Mentions:     a.n,
			Sentiment:    classify(delta),
		}
		if math.Abs(pct) > insightPercentCutoff {
			p.Message = activityMessage(p, pct)
		}
		out.Patterns = append(out.Patterns, p)
	}

	sort.SliceStable(out.Patterns, func(i, j int) bool {
		di, dj := math.Abs(out.Patterns[i].Delta), math.Abs(out.Patterns[j].Delta)
		if di != dj {
			return di > dj
		}
		return out.Patterns[i].Tag < out.Patterns[j].Tag
	})
	if len(out.Patterns) > maxActivityPatterns {
		out.Patterns = out.Patterns[:maxActivityPatterns]
	}
	return out
}

func classify(delta float64) string {
	switch {
	case delta > sentimentThreshold:
		return journal.SentimentPositive
	case delta < -sentimentThreshold:
		return journal.SentimentNegative
	default:
		return journal.SentimentNeutral
	}
}

func activityMessage(p journal.ActivityPattern, pct float64) string {
	name := displayEntity(p.Entity)
	if pct > 0 {
		return fmt.Sprintf("Your mood tends to be %.0f%% higher on days involving %s.", pct, name)
	}
	return fmt.Sprintf("Your mood tends to be %.0f%% lower on days involving %s.", -pct, name)
}

func displayEntity(v string) string {
	return strings.ReplaceAll(v, "_", " ")
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
