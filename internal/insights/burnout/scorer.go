package burnout

import (
	"math"
	"sort"
	"time"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
)

const (
	DefaultWindow  = 14
	MinEntries     = 3
	recoveryWindow = 5

	weightMoodTrajectory = 0.25
	weightFatigue        = 0.20
	weightOverwork       = 0.20
	weightPhysical       = 0.15
	weightWorkTags       = 0.10
	weightLowMoodStreak  = 0.10

	recoveryPerEntry = 0.05
	maxRecovery      = 0.15
	lowMoodCutoff    = 0.4
	shelterFactorMin = 0.6
)

const (
	SignalDecliningMood    = "declining_mood"
	SignalFatigue          = "fatigue"
	SignalOverwork         = "overwork"
	SignalPhysicalSymptoms = "physical_symptoms"
	SignalWorkHeavy        = "work_heavy"
	SignalLowMoodStreak    = "low_mood_streak"
)

type Options struct {
	Now      time.Time
	Location *time.Location
	Lexicon  *lexicon.Lexicon
	Window   int
}

func (o Options) withDefaults() Options {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Lexicon == nil {
		o.Lexicon = lexicon.Default()
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	return o
}

// ComputeBurnoutRiskFromEntries scores the newest entries of one user. It does not touch any
// store; callers load the entries and persist the result.
func ComputeBurnoutRiskFromEntries(entries []journal.Snapshot, opts Options) journal.BurnoutAssessment {
	opts = opts.withDefaults()
	if len(entries) < MinEntries {
		return journal.BurnoutAssessment{
			RiskLevel:        journal.RiskLow,
			Signals:          []string{},
			EntryCount:       len(entries),
			InsufficientData: true,
			AssessedAt:       opts.Now.UTC(),
		}
	}

	recent := newest(entries, opts.Window)
	lex := opts.Lexicon
	var signals []string

	trajectory := moodTrajectory(recent)
	if trajectory > 0.3 {
		signals = append(signals, SignalDecliningMood)
	}
	fatigue := math.Min(1, ratio(recent, func(s journal.Snapshot) bool {
		return lex.Matches(lexicon.Fatigue, s.Text)
	})*1.5)
	if fatigue >= 0.3 {
		signals = append(signals, SignalFatigue)
	}
	overwork := overworkScore(lex, recent, opts.Location)
	if overwork >= 0.3 {
		signals = append(signals, SignalOverwork)
	}
	physical := math.Min(1, ratio(recent, func(s journal.Snapshot) bool {
		return lex.Matches(lexicon.Physical, s.Text)
	})*1.5)
	if physical >= 0.3 {
		signals = append(signals, SignalPhysicalSymptoms)
	}
	workTags := workTagDensity(lex, recent)
	if workTags >= 0.5 {
		signals = append(signals, SignalWorkHeavy)
	}
	streak := lowMoodStreak(recent)
	if streak >= 3 {
		signals = append(signals, SignalLowMoodStreak)
	}

	factors := journal.BurnoutFactors{
		MoodTrajectory:     round(trajectory),
		FatigueKeywords:    round(fatigue),
		OverworkIndicators: round(overwork),
		PhysicalSymptoms:   round(physical),
		WorkTagDensity:     round(workTags),
		LowMoodStreak:      streakScore(streak),
	}
	weighted := trajectory*weightMoodTrajectory +
		fatigue*weightFatigue +
		overwork*weightOverwork +
		physical*weightPhysical +
		workTags*weightWorkTags +
		factors.LowMoodStreak*weightLowMoodStreak

	discount := recoveryDiscount(lex, recent)
	score := round(clamp01(weighted - discount))
	level := Level(score)
	if signals == nil {
		signals = []string{}
	}
	return journal.BurnoutAssessment{
		RiskScore:          score,
		RiskLevel:          level,
		Signals:            signals,
		Factors:            &factors,
		RecoveryDiscount:   round(discount),
		TriggerShelterMode: shelterMode(level, factors),
		EntryCount:         len(recent),
		AssessedAt:         opts.Now.UTC(),
	}
}

// Level buckets a score: low [0,.3), moderate [.3,.5), high [.5,.7), critical [.7,1].
func Level(score float64) journal.RiskLevel {
	switch {
	case score >= 0.7:
		return journal.RiskCritical
	case score >= 0.5:
		return journal.RiskHigh
	case score >= 0.3:
		return journal.RiskModerate
	default:
		return journal.RiskLow
	}
}

func shelterMode(level journal.RiskLevel, f journal.BurnoutFactors) bool {
	switch level {
	case journal.RiskCritical:
		return true
	case journal.RiskHigh:
		n := 0
		for _, v := range f.Values() {
			if v > shelterFactorMin {
				n++
			}
		}
		return n >= 2
	}
	return false
}

// newest returns up to n entries ordered newest first.
func newest(entries []journal.Snapshot, n int) []journal.Snapshot {
	out := append([]journal.Snapshot(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func ratio(entries []journal.Snapshot, match func(journal.Snapshot) bool) float64 {
	if len(entries) == 0 {
		return 0
	}
	n := 0
	for _, e := range entries {
		if match(e) {
			n++
		}
	}
	return float64(n) / float64(len(entries))
}

// moodTrajectory combines the decline between the oldest and newest moods with the
// absolute average mood. entries are newest first.
func moodTrajectory(entries []journal.Snapshot) float64 {
	var moods []float64
	for i := len(entries) - 1; i >= 0; i-- {
		if m, ok := entries[i].Mood(); ok {
			moods = append(moods, m)
		}
	}
	if len(moods) == 0 {
		return 0
	}

	score := 0.0
	if k := min(3, len(moods)/2); k > 0 {
		decline := mean(moods[:k]) - mean(moods[len(moods)-k:])
		switch {
		case decline >= 0.3:
			score += 0.5
		case decline >= 0.2:
			score += 0.35
		case decline >= 0.1:
			score += 0.2
		case decline > 0.05:
			score += 0.1
		}
	}
	switch avg := mean(moods); {
	case avg < 0.3:
		score += 0.5
	case avg < 0.4:
		score += 0.35
	case avg < 0.5:
		score += 0.2
	}
	return math.Min(1, score)
}

func overworkScore(lex *lexicon.Lexicon, entries []journal.Snapshot, loc *time.Location) float64 {
	lateNight := ratio(entries, func(s journal.Snapshot) bool {
		h := s.At.In(loc).Hour()
		return h >= 22 || h < 5
	})
	weekend := ratio(entries, func(s journal.Snapshot) bool {
		d := s.At.In(loc).Weekday()
		return d == time.Saturday || d == time.Sunday
	})
	keywords := ratio(entries, func(s journal.Snapshot) bool {
		return lex.Matches(lexicon.Overwork, s.Text)
	})
	return math.Min(1, 0.4*lateNight+0.3*weekend+0.3*keywords)
}

func workTagDensity(lex *lexicon.Lexicon, entries []journal.Snapshot) float64 {
	total, work := 0, 0
	for _, e := range entries {
		for _, tag := range e.Tags {
			total++
			if ns, _, ok := journal.SplitTag(tag); ok && lex.IsWorkNamespace(ns) {
				work++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return math.Min(1, float64(work)/float64(total)*1.5)
}

// lowMoodStreak counts consecutive newest entries below the low-mood cutoff. An entry without
// a mood ends the streak.
func lowMoodStreak(entries []journal.Snapshot) int {
	n := 0
	for _, e := range entries {
		m, ok := e.Mood()
		if !ok || m >= lowMoodCutoff {
			break
		}
		n++
	}
	return n
}

func streakScore(streak int) float64 {
	switch {
	case streak >= 5:
		return 1
	case streak >= 4:
		return 0.8
	case streak >= 3:
		return 0.5
	case streak >= 2:
		return 0.2
	}
	return 0
}

// recoveryDiscount counts entries mentioning recovery among the newest few.
func recoveryDiscount(lex *lexicon.Lexicon, entries []journal.Snapshot) float64 {
	n := 0
	for i, e := range entries {
		if i >= recoveryWindow {
			break
		}
		if lex.Matches(lexicon.Recovery, e.Text) {
			n++
		}
	}
	return math.Min(maxRecovery, float64(n)*recoveryPerEntry)
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
