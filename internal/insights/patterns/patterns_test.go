package patterns

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
	"gorm.io/datatypes"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // Monday morning

func snap(text string, mood float64, at time.Time, tags ...string) journal.Snapshot {
	m := mood
	return journal.Snapshot{
		ID:       uuid.New(),
		Text:     text,
		Lower:    strings.ToLower(text),
		Tags:     journal.NormalizeTags(tags),
		At:       at,
		Analysis: &journal.Analysis{MoodScore: &m, EntryType: journal.DefaultEntryType},
	}
}

func unanalyzed(text string, at time.Time) journal.Snapshot {
	return journal.Snapshot{ID: uuid.New(), Text: text, Lower: strings.ToLower(text), At: at}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 0.001 }

func TestActivitySentimentRunningIsPositive(t *testing.T) {
	moods := []float64{.8, .75, .2, .8, .78, .25}
	running := map[int]bool{0: true, 3: true, 4: true}
	var entries []journal.Snapshot
	for i, m := range moods {
		var tags []string
		if running[i] {
			tags = append(tags, "@activity:running")
		}
		entries = append(entries, snap("day", m, t0.Add(time.Duration(i)*24*time.Hour), tags...))
	}

	b := Compute(entries, nil, nil, ComputeOptions{Now: t0.Add(7 * 24 * time.Hour)})
	if b == nil {
		t.Fatalf("Compute: nil bundle for 6 entries")
	}
	if len(b.ActivitySentiment.Patterns) != 1 {
		t.Fatalf("patterns: want=1 got=%d", len(b.ActivitySentiment.Patterns))
	}
	p := b.ActivitySentiment.Patterns[0]
	if p.Entity != "running" || p.EntityType != "activity" || p.Mentions != 3 {
		t.Fatalf("pattern: unexpected %+v", p)
	}
	if !approx(p.AvgMood, 0.7933) || !approx(p.Baseline, 0.5967) {
		t.Fatalf("avg/baseline: got avg=%v baseline=%v", p.AvgMood, p.Baseline)
	}
	if p.Sentiment != journal.SentimentPositive {
		t.Fatalf("sentiment: want=positive got=%s", p.Sentiment)
	}
	if p.Message == "" || !strings.Contains(p.Message, "running") {
		t.Fatalf("message: want insight text, got %q", p.Message)
	}
	if len(b.Summary.Items) == 0 || b.Summary.Items[0].Kind != "activity_positive" {
		t.Fatalf("summary should lead with the positive insight: %+v", b.Summary.Items)
	}
}

func TestActivitySentimentSkipsControlAndSingleMentions(t *testing.T) {
	lex := lexicon.Default()
	entries := []journal.Snapshot{
		snap("a", .9, t0, "@type:gratitude", "@food:pizza"),
		snap("b", .9, t0.Add(time.Hour), "@type:gratitude"),
		snap("c", .1, t0.Add(2*time.Hour), "plain"),
	}
	got := ActivitySentiment(lex, entries)
	if len(got.Patterns) != 0 {
		t.Fatalf("want no patterns, got %+v", got.Patterns)
	}
}

func TestNeutralWithinThresholdHasNoMessage(t *testing.T) {
	lex := lexicon.Default()
	entries := []journal.Snapshot{
		snap("a", .5, t0, "@media:podcasts"),
		snap("b", .52, t0.Add(time.Hour), "@media:podcasts"),
		snap("c", .48, t0.Add(2*time.Hour)),
		snap("d", .5, t0.Add(3*time.Hour)),
	}
	got := ActivitySentiment(lex, entries)
	if len(got.Patterns) != 1 {
		t.Fatalf("want 1 pattern, got %d", len(got.Patterns))
	}
	if got.Patterns[0].Sentiment != journal.SentimentNeutral || got.Patterns[0].Message != "" {
		t.Fatalf("want neutral without message, got %+v", got.Patterns[0])
	}
}

func TestInsufficientDataGuard(t *testing.T) {
	var entries []journal.Snapshot
	for i := 0; i < 4; i++ {
		entries = append(entries, snap("x", .5, t0.Add(time.Duration(i)*time.Hour)))
	}
	entries = append(entries, unanalyzed("not yet classified", t0.Add(10*time.Hour)))
	if b := Compute(entries, nil, nil, ComputeOptions{Now: t0}); b != nil {
		t.Fatalf("4 analyzed entries: want nil bundle")
	}
	entries = append(entries, snap("fifth", .5, t0.Add(11*time.Hour)))
	b := Compute(entries, nil, nil, ComputeOptions{Now: t0})
	if b == nil {
		t.Fatalf("5 analyzed entries: want bundle")
	}
	if b.EntryCount != 5 || b.Scope != journal.ScopeAll {
		t.Fatalf("bundle: entry_count=%d scope=%s", b.EntryCount, b.Scope)
	}
}

func TestTemporalBestAndWorstDay(t *testing.T) {
	monday := t0
	tuesday := t0.Add(24 * time.Hour)
	wednesday := t0.Add(48 * time.Hour)
	entries := []journal.Snapshot{
		snap("m1", .7, monday),
		snap("m2", .8, monday.Add(7*24*time.Hour)),
		snap("t1", .3, tuesday.Add(5*time.Hour)),
		snap("t2", .4, tuesday.Add(7*24*time.Hour+6*time.Hour)),
		snap("w1", .1, wednesday.Add(11*time.Hour)),
	}
	got := Temporal(entries, time.UTC)
	if len(got.DayOfWeek) != 2 {
		t.Fatalf("day buckets: want=2 got=%+v", got.DayOfWeek)
	}
	if got.BestDay == nil || got.BestDay.Key != "Monday" || !approx(got.BestDay.AvgMood, .75) {
		t.Fatalf("best day: got %+v", got.BestDay)
	}
	if got.WorstDay == nil || got.WorstDay.Key != "Tuesday" || !approx(got.WorstDay.AvgMood, .35) {
		t.Fatalf("worst day: got %+v", got.WorstDay)
	}
	if got.BestDayInsight == "" || got.WorstDayInsight == "" {
		t.Fatalf("insights missing: %+v", got)
	}
	keys := map[string]int{}
	for _, b := range got.TimeOfDay {
		keys[b.Key] = b.Count
	}
	if keys["morning"] != 2 || keys["afternoon"] != 2 {
		t.Fatalf("time of day: got %+v", got.TimeOfDay)
	}
	if _, ok := keys["evening"]; ok {
		t.Fatalf("single-sample evening bucket should be dropped")
	}
}

func TestTemporalUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	// 03:00 UTC Tuesday is 19:00 Monday in UTC-8.
	at := time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC)
	entries := []journal.Snapshot{snap("a", .7, at), snap("b", .7, at.Add(7*24*time.Hour))}
	got := Temporal(entries, loc)
	if len(got.DayOfWeek) != 1 || got.DayOfWeek[0].Key != "Monday" {
		t.Fatalf("day of week: got %+v", got.DayOfWeek)
	}
	if len(got.TimeOfDay) != 1 || got.TimeOfDay[0].Key != "evening" {
		t.Fatalf("time of day: got %+v", got.TimeOfDay)
	}
	if got.BestDay == nil || got.WorstDay != nil {
		t.Fatalf("0.7 is above the best-day floor: best=%+v worst=%+v", got.BestDay, got.WorstDay)
	}
}

func goalState(topic string, state journal.GoalState, lastUpdated time.Time) *journal.SignalState {
	return &journal.SignalState{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Type:        journal.SignalTypeGoal,
		Topic:       topic,
		DisplayName: strings.ReplaceAll(topic, "_", " "),
		State:       state,
		LastUpdated: lastUpdated,
		CreatedAt:   lastUpdated,
	}
}

func TestGoalAbandonmentSeverity(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	states := []*journal.SignalState{
		goalState("learn_guitar", journal.GoalActive, now.Add(-40*24*time.Hour)),
		goalState("run_5k", journal.GoalProposed, now.Add(-20*24*time.Hour)),
		goalState("fresh_goal", journal.GoalActive, now.Add(-10*24*time.Hour)),
		goalState("done_goal", journal.GoalAchieved, now.Add(-90*24*time.Hour)),
		goalState("dropped_goal", journal.GoalAbandoned, now.Add(-90*24*time.Hour)),
		goalState("paused_goal", journal.GoalPaused, now.Add(-90*24*time.Hour)),
	}
	got := GoalAbandonment(states, now)
	if len(got) != 2 {
		t.Fatalf("contradictions: want=2 got=%+v", got)
	}
	if got[0].Topic != "learn_guitar" || got[0].Severity != journal.SeverityHigh || got[0].DaysSinceUpdate != 40 {
		t.Fatalf("first: unexpected %+v", got[0])
	}
	if got[1].Topic != "run_5k" || got[1].Severity != journal.SeverityMedium {
		t.Fatalf("second: unexpected %+v", got[1])
	}
	if len(got[0].Actions) != 3 || got[0].Actions[0].Action != "reactivate" {
		t.Fatalf("actions: unexpected %+v", got[0].Actions)
	}
}

func TestSentimentContradiction(t *testing.T) {
	lex := lexicon.Default()
	entries := []journal.Snapshot{
		snap("Great run", .9, t0, "@activity:running"),
		snap("Another run", .9, t0.Add(24*time.Hour), "@activity:running"),
		snap("Ran again", .9, t0.Add(48*time.Hour), "@activity:running"),
		snap("Meh", .3, t0.Add(72*time.Hour)),
		snap("I hate running in the rain", .4, t0.Add(96*time.Hour)),
		snap("Quiet", .3, t0.Add(120*time.Hour)),
	}
	activity := ActivitySentiment(lex, entries)
	got := SentimentContradictions(lex, entries, activity.Patterns)
	if len(got) != 1 {
		t.Fatalf("want 1 sentiment contradiction, got %+v", got)
	}
	if got[0].Entity != "running" || got[0].Severity != journal.SeverityLow || got[0].EntryIDs[0] != entries[4].ID.String() {
		t.Fatalf("unexpected %+v", got[0])
	}
}

func TestAvoidanceContradiction(t *testing.T) {
	lex := lexicon.Default()
	entries := []journal.Snapshot{
		snap("Going to avoid chocolate this month", .5, t0, "@food:chocolate"),
		snap("Had chocolate with friends, lovely", .8, t0.Add(24*time.Hour), "@food:chocolate"),
		snap("Chocolate cake at work", .7, t0.Add(48*time.Hour)),
		snap("Avoiding the gym, no more gym", .4, t0.Add(72*time.Hour), "@activity:gym"),
		snap("Gym was fine", .5, t0.Add(96*time.Hour), "@activity:gym"),
	}
	got := AvoidanceContradictions(lex, entries)
	if len(got) != 1 {
		t.Fatalf("want 1 avoidance contradiction, got %+v", got)
	}
	c := got[0]
	if c.Entity != "chocolate" || c.Severity != journal.SeverityMedium || len(c.EntryIDs) != 3 {
		t.Fatalf("unexpected %+v", c)
	}
}

func TestExclusionsApplyBeforeSummary(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	var entries []journal.Snapshot
	for i := 0; i < 5; i++ {
		entries = append(entries, snap("day", .5, now.Add(-time.Duration(i+1)*time.Hour)))
	}
	states := []*journal.SignalState{goalState("learn_guitar", journal.GoalActive, now.Add(-40*24*time.Hour))}

	b := Compute(entries, states, nil, ComputeOptions{Now: now})
	if b == nil || len(b.Contradictions.Items) != 1 || len(b.Summary.Items) != 1 {
		t.Fatalf("without exclusion: %+v", b)
	}

	xs := []*journal.Exclusion{{
		PatternType: journal.ContradictionGoalAbandonment,
		Permanent:   true,
		Context:     datatypes.JSON([]byte(`{"topic":"learn_guitar"}`)),
	}}
	b = Compute(entries, states, xs, ComputeOptions{Now: now})
	if b == nil {
		t.Fatalf("with exclusion: nil bundle")
	}
	if len(b.Contradictions.Items) != 0 || len(b.Summary.Items) != 0 {
		t.Fatalf("excluded contradiction resurfaced: contradictions=%+v summary=%+v", b.Contradictions.Items, b.Summary.Items)
	}
}

func TestBuildSummaryOrderAndCap(t *testing.T) {
	activity := []journal.ActivityPattern{
		{Sentiment: journal.SentimentNegative, Message: "neg"},
		{Sentiment: journal.SentimentPositive, Message: ""},
		{Sentiment: journal.SentimentPositive, Message: "pos"},
	}
	temporal := journal.TemporalPatterns{BestDayInsight: "best", WorstDayInsight: "worst"}
	contradictions := []journal.Contradiction{
		{Type: journal.ContradictionAvoidance, Message: "c1", Severity: journal.SeverityMedium},
		{Type: journal.ContradictionSentiment, Message: "c2"},
	}
	got := BuildSummary(activity, temporal, contradictions).Items
	want := []string{"pos", "neg", "best", "worst", "c1"}
	if len(got) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i].Message != want[i] {
			t.Fatalf("item %d: want=%q got=%q", i, want[i], got[i].Message)
		}
	}
}

func TestDocumentsCoverEveryKind(t *testing.T) {
	b := &Bundle{Scope: "work", EntryCount: 7, ComputedAt: t0}
	docs, err := b.Documents(uuid.New())
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != len(journal.PatternKinds) {
		t.Fatalf("docs: want=%d got=%d", len(journal.PatternKinds), len(docs))
	}
	for i, d := range docs {
		if d.Kind != journal.PatternKinds[i] || d.Scope != "work" || d.EntryCount != 7 || len(d.Data) == 0 {
			t.Fatalf("doc %d: unexpected %+v", i, d)
		}
	}
}
