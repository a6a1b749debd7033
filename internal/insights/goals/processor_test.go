package goals

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"gorm.io/datatypes"
)

type memStates struct {
	mu   sync.Mutex
	rows map[string]*journal.SignalState
	// loseNext makes the next n UpdateIfVersion calls report a lost race.
	loseNext int
	updates  int
}

func newMemStates() *memStates {
	return &memStates{rows: map[string]*journal.SignalState{}}
}

func key(userID uuid.UUID, typ, topic string) string {
	return userID.String() + "/" + typ + "/" + topic
}

func clone(s *journal.SignalState) *journal.SignalState {
	c := *s
	c.StateHistory = append(datatypes.JSON(nil), s.StateHistory...)
	c.SourceEntries = append(datatypes.JSON(nil), s.SourceEntries...)
	return &c
}

func (m *memStates) GetByTopic(_ dbctx.Context, userID uuid.UUID, typ, topic string) (*journal.SignalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[key(userID, typ, topic)]; ok {
		return clone(s), nil
	}
	return nil, nil
}

func (m *memStates) GetByID(_ dbctx.Context, userID, id uuid.UUID) (*journal.SignalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.UserID == userID && s.ID == id {
			return clone(s), nil
		}
	}
	return nil, nil
}

func (m *memStates) list(userID uuid.UUID, keep func(*journal.SignalState) bool) []*journal.SignalState {
	var out []*journal.SignalState
	for _, s := range m.rows {
		if s.UserID == userID && keep(s) {
			out = append(out, clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out
}

func (m *memStates) ListByStates(_ dbctx.Context, userID uuid.UUID, typ string, states []journal.GoalState) ([]*journal.SignalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(userID, func(s *journal.SignalState) bool {
		if s.Type != typ {
			return false
		}
		for _, st := range states {
			if s.State == st {
				return true
			}
		}
		return false
	}), nil
}

func (m *memStates) ListByUser(_ dbctx.Context, userID uuid.UUID, typ string) ([]*journal.SignalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(userID, func(s *journal.SignalState) bool { return s.Type == typ }), nil
}

func (m *memStates) Create(_ dbctx.Context, s *journal.SignalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(s.UserID, s.Type, s.Topic)
	if _, ok := m.rows[k]; ok {
		return fmt.Errorf("duplicate: %w", errs.ErrConflict)
	}
	m.rows[k] = clone(s)
	return nil
}

func (m *memStates) UpdateIfVersion(_ dbctx.Context, s *journal.SignalState, expected int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.loseNext > 0 {
		m.loseNext--
		return false, nil
	}
	k := key(s.UserID, s.Type, s.Topic)
	cur, ok := m.rows[k]
	if !ok || cur.Version != expected {
		return false, nil
	}
	s.Version = expected + 1
	m.rows[k] = clone(s)
	return true, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newProcessor(states *memStates, c *clock) *Processor {
	return NewProcessor(states, lexicon.Default(), logger.Nop(), Options{Now: c.now})
}

func entry(text string, analysis string, tags ...string) *journal.Entry {
	e := &journal.Entry{ID: uuid.New(), Text: text, CreatedAt: time.Now()}
	e.SetTags(tags)
	if analysis != "" {
		e.Analysis = datatypes.JSON([]byte(analysis))
	}
	return e
}

func TestMarathonLifecycleNeverResurrects(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	c := &clock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	p := newProcessor(states, c)
	user := uuid.New()

	s, err := p.ProcessEntryForGoals(ctx, user, entry("I want to run a marathon", ""))
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if s == nil || s.Topic != "run_a_marathon" || s.State != journal.GoalProposed {
		t.Fatalf("declare: unexpected state %+v", s)
	}

	c.t = c.t.Add(24 * time.Hour)
	s, err = p.ProcessEntryForGoals(ctx, user, entry("I'm giving up on the marathon, my knee can't take it", ""))
	if err != nil {
		t.Fatalf("give up: %v", err)
	}
	if s == nil || s.State != journal.GoalAbandoned {
		t.Fatalf("give up: want=abandoned got=%+v", s)
	}

	for _, text := range []string{
		"Thinking about running a marathon again someday",
		"I want to run a marathon",
		"I want to run a marathon again",
		"I'm going to run a marathon this spring",
		"Finally did it, the marathon is done!",
	} {
		c.t = c.t.Add(24 * time.Hour)
		if _, err := p.ProcessEntryForGoals(ctx, user, entry(text, "")); err != nil {
			t.Fatalf("%q: %v", text, err)
		}
	}
	all, _ := states.ListByUser(dbctx.Context{}, user, journal.SignalTypeGoal)
	if len(all) != 1 {
		t.Fatalf("goal count: want=1 got=%d", len(all))
	}
	if all[0].State != journal.GoalAbandoned {
		t.Fatalf("terminal goal moved: state=%s", all[0].State)
	}
}

func TestRedeclaredFinishedGoalIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	p := newProcessor(states, &clock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)})
	user := uuid.New()

	if _, err := p.ProcessEntryForGoals(ctx, user, entry("I want to learn piano", "")); err != nil {
		t.Fatalf("declare: %v", err)
	}
	s, err := p.ProcessEntryForGoals(ctx, user, entry("Played my first full piece",
		`{"mood_score":0.9,"goal_update":{"tag":"learn_piano","status":"achieved"}}`))
	if err != nil {
		t.Fatalf("achieve: %v", err)
	}
	if s == nil || s.State != journal.GoalAchieved {
		t.Fatalf("achieve: want=achieved got=%+v", s)
	}

	sig, res, err := p.Process(ctx, user, entry("I want to learn piano again, properly this time", ""))
	if err != nil {
		t.Fatalf("redeclare: %v", err)
	}
	if sig == nil || sig.Topic != "learn_piano" {
		t.Fatalf("redeclare topic: want=learn_piano got=%+v", sig)
	}
	if res.Status != StatusSkipped || res.Reason != ReasonTerminal {
		t.Fatalf("redeclare: want=skipped/terminal got=%s/%s", res.Status, res.Reason)
	}

	// Sharing one word is not enough; the old topic must be fully restated.
	if _, err := p.ProcessEntryForGoals(ctx, user, entry("I want to learn spanish", "")); err != nil {
		t.Fatalf("new goal: %v", err)
	}
	all, _ := states.ListByUser(dbctx.Context{}, user, journal.SignalTypeGoal)
	if len(all) != 2 {
		t.Fatalf("goal count: want=2 got=%d", len(all))
	}
}

func TestStructuredGoalUpdateWins(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	p := newProcessor(states, &clock{t: time.Now()})
	user := uuid.New()

	if _, err := p.ProcessEntryForGoals(ctx, user, entry("I want to learn piano", "")); err != nil {
		t.Fatalf("declare: %v", err)
	}
	// The text reads like a termination but the classifier says progress.
	s, err := p.ProcessEntryForGoals(ctx, user, entry("I almost quit today but kept going",
		`{"mood_score":0.6,"goal_update":{"tag":"@goal:learn_piano","status":"struggling"}}`))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s == nil || s.State != journal.GoalActive {
		t.Fatalf("struggling should confirm the goal: got %+v", s)
	}
}

func TestGoalTagUsesTextPriority(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	p := newProcessor(states, &clock{t: time.Now()})
	user := uuid.New()

	sig, res, err := p.Process(ctx, user, entry("Made progress but honestly I'm done with it", "", "@goal:Write_Novel"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sig == nil || sig.Source != SourceGoalTag || sig.UpdateType != journal.UpdateTermination {
		t.Fatalf("signal: unexpected %+v", sig)
	}
	if res.Status != StatusSkipped || res.Reason != ReasonNoTarget {
		t.Fatalf("termination without a goal must not create one: %+v", res)
	}
}

func TestImplicitTargetNeedsSharedToken(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	c := &clock{t: time.Now()}
	p := newProcessor(states, c)
	user := uuid.New()

	if _, err := p.ProcessEntryForGoals(ctx, user, entry("My goal is to learn spanish. Starting Monday!", "")); err != nil {
		t.Fatalf("declare: %v", err)
	}
	s, err := p.ProcessEntryForGoals(ctx, user, entry("I quit the gym", ""))
	if err != nil || s != nil {
		t.Fatalf("unrelated termination should not match: s=%+v err=%v", s, err)
	}
	s, err = p.ProcessEntryForGoals(ctx, user, entry("Completed my first Spanish lesson book", ""))
	if err != nil {
		t.Fatalf("implicit: %v", err)
	}
	if s == nil || s.Topic != "learn_spanish" || s.State != journal.GoalAchieved {
		t.Fatalf("implicit achievement: got %+v", s)
	}
}

func TestHistoryCapKeepsCreationRecord(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := newProcessor(states, c)
	user := uuid.New()

	if _, err := p.UpsertGoalState(ctx, user, "Read More Books", "e0", journal.UpdateNew, "start"); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 1; i <= 25; i++ {
		c.t = c.t.Add(time.Hour)
		if _, err := p.UpsertGoalState(ctx, user, "read_more_books", fmt.Sprintf("e%d", i), journal.UpdateMention, ""); err != nil {
			t.Fatalf("mention %d: %v", i, err)
		}
	}
	s, _ := states.GetByTopic(dbctx.Context{}, user, journal.SignalTypeGoal, "read_more_books")
	h := s.History()
	if len(h) != journal.MaxStateHistory {
		t.Fatalf("history len: want=%d got=%d", journal.MaxStateHistory, len(h))
	}
	if h[0].UpdateType != journal.UpdateNew || h[0].EntryID != "e0" {
		t.Fatalf("creation record lost: %+v", h[0])
	}
	if len(s.Sources()) != 26 {
		t.Fatalf("sources: want=26 got=%d", len(s.Sources()))
	}
	if !s.LastUpdated.Equal(c.t) {
		t.Fatalf("last_updated: want=%v got=%v", c.t, s.LastUpdated)
	}
}

func TestUpsertRetriesLostRace(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	p := newProcessor(states, &clock{t: time.Now()})
	user := uuid.New()
	if _, err := p.UpsertGoalState(ctx, user, "swim", "e1", journal.UpdateNew, ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	states.loseNext = 2
	res, err := p.UpsertGoalState(ctx, user, "swim", "e2", journal.UpdateProgress, "")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Status != StatusUpdated || res.To != journal.GoalActive {
		t.Fatalf("retry: unexpected %+v", res)
	}

	states.loseNext = 3
	_, err = p.UpsertGoalState(ctx, user, "swim", "e3", journal.UpdateMention, "")
	if !errors.Is(err, errs.ErrConcurrentUpdate) {
		t.Fatalf("exhausted retries: want ErrConcurrentUpdate got %v", err)
	}
}

func TestApplyUserAction(t *testing.T) {
	ctx := context.Background()
	states := newMemStates()
	p := newProcessor(states, &clock{t: time.Now()})
	user := uuid.New()
	if _, err := p.UpsertGoalState(ctx, user, "journal_daily", "e1", journal.UpdateNew, ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := p.ApplyUserAction(ctx, user, "journal_daily", ActionPause)
	if err != nil || res.To != journal.GoalPaused {
		t.Fatalf("pause: res=%+v err=%v", res, err)
	}
	res, err = p.ApplyUserAction(ctx, user, "journal_daily", ActionAchieve)
	if err != nil || res.To != journal.GoalAchieved {
		t.Fatalf("achieve: res=%+v err=%v", res, err)
	}
	res, err = p.ApplyUserAction(ctx, user, "journal_daily", ActionReactivate)
	if err != nil || res.Status != StatusSkipped {
		t.Fatalf("reactivate terminal: res=%+v err=%v", res, err)
	}
	if _, err := p.ApplyUserAction(ctx, user, "journal_daily", "snooze"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown action: want ErrInvalidArgument got %v", err)
	}
	if _, err := p.ApplyUserAction(ctx, user, "missing", ActionPause); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing goal: want ErrNotFound got %v", err)
	}
}

func TestExtractTopic(t *testing.T) {
	lex := lexicon.Default()
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"I want to run a marathon", "run a marathon", true},
		{"Today was long. I'm going to start meditating! Maybe tomorrow.", "start meditating", true},
		{"My goal is to read fifty books this year, which feels like a lot but also very exciting honestly", "read fifty books this year, which feels like a lot but also", true},
		{"I want to.", "", false},
		{"No goals here", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractTopic(lex, tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ExtractTopic(%q): want=(%q,%v) got=(%q,%v)", tc.text, tc.want, tc.ok, got, ok)
		}
		if len(got) > MaxTopicLen {
			t.Fatalf("ExtractTopic(%q): topic longer than %d", tc.text, MaxTopicLen)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from journal.GoalState
		u    journal.UpdateType
		want journal.GoalState
		ok   bool
	}{
		{journal.GoalProposed, journal.UpdateProgress, journal.GoalActive, true},
		{journal.GoalActive, journal.UpdateProgress, journal.GoalActive, true},
		{journal.GoalActive, journal.UpdateTermination, journal.GoalAbandoned, true},
		{journal.GoalPaused, journal.UpdateAchievement, journal.GoalAchieved, true},
		{journal.GoalProposed, journal.UpdateMention, journal.GoalProposed, true},
		{journal.GoalAchieved, journal.UpdateProgress, journal.GoalAchieved, false},
		{journal.GoalAbandoned, journal.UpdateNew, journal.GoalAbandoned, false},
	}
	for _, tc := range cases {
		got, ok := Transition(tc.from, tc.u)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Transition(%s,%s): want=(%s,%v) got=(%s,%v)", tc.from, tc.u, tc.want, tc.ok, got, ok)
		}
	}
}
