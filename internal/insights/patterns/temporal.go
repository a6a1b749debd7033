package patterns

import (
	"fmt"
	"time"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
)

const (
	minBucketSamples = 2
	worstDayCeiling  = 0.45
	bestDayFloor     = 0.6
)

var timeOfDayOrder = []string{"night", "morning", "afternoon", "evening"}

// TimeOfDay buckets an hour: night before 6, morning before 12, afternoon before 17.
func TimeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

// Temporal groups moods by weekday and time of day in loc.
func Temporal(entries []journal.Snapshot, loc *time.Location) journal.TemporalPatterns {
	if loc == nil {
		loc = time.UTC
	}
	type acc struct {
		sum float64
		n   int
	}
	days := map[time.Weekday]*acc{}
	slots := map[string]*acc{}
	for _, e := range entries {
		m, ok := e.Mood()
		if !ok {
			continue
		}
		at := e.At.In(loc)
		d := days[at.Weekday()]
		if d == nil {
			d = &acc{}
			days[at.Weekday()] = d
		}
		d.sum += m
		d.n++
		key := TimeOfDay(at.Hour())
		s := slots[key]
		if s == nil {
			s = &acc{}
			slots[key] = s
		}
		s.sum += m
		s.n++
	}

	out := journal.TemporalPatterns{
		DayOfWeek: []journal.TemporalBucket{},
		TimeOfDay: []journal.TemporalBucket{},
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		a := days[wd]
		if a == nil || a.n < minBucketSamples {
			continue
		}
		out.DayOfWeek = append(out.DayOfWeek, journal.TemporalBucket{Key: wd.String(), AvgMood: round(a.sum / float64(a.n)), Count: a.n})
	}
	for _, key := range timeOfDayOrder {
		a := slots[key]
		if a == nil || a.n < minBucketSamples {
			continue
		}
		out.TimeOfDay = append(out.TimeOfDay, journal.TemporalBucket{Key: key, AvgMood: round(a.sum / float64(a.n)), Count: a.n})
	}

	var best, worst *journal.TemporalBucket
	for i := range out.DayOfWeek {
		b := &out.DayOfWeek[i]
		if best == nil || b.AvgMood > best.AvgMood {
			best = b
		}
		if worst == nil || b.AvgMood < worst.AvgMood {
			worst = b
		}
	}
	if best != nil && best.AvgMood > bestDayFloor {
		c := *best
		out.BestDay = &c
		out.BestDayInsight = fmt.Sprintf("You tend to feel your best on %ss.", c.Key)
	}
	if worst != nil && worst.AvgMood < worstDayCeiling {
		c := *worst
		out.WorstDay = &c
		out.WorstDayInsight = fmt.Sprintf("%ss tend to be your toughest day.", c.Key)
	}
	return out
}
