package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/hearth-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"gorm.io/datatypes"
)

func testCtx(t *testing.T) dbctx.Context {
	t.Helper()
	db := testutil.DB(t)
	return dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
}

func TestEntryRepoListRecent(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
	repo := NewEntryRepo(db, testutil.Logger(t))

	user := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		cat := "work"
		if i%2 == 0 {
			cat = "home"
		}
		e := &types.Entry{UserID: user, Text: "entry", Category: cat, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if _, err := repo.Create(dbc, []*types.Entry{e}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other := &types.Entry{UserID: uuid.New(), Text: "someone else", CreatedAt: base}
	if _, err := repo.Create(dbc, []*types.Entry{other}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	all, err := repo.ListRecent(dbc, user, "", 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListRecent: want=3 got=%d", len(all))
	}
	if !all[0].CreatedAt.Equal(base.Add(4*time.Hour)) || !all[2].CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("ListRecent: not newest first: %v .. %v", all[0].CreatedAt, all[2].CreatedAt)
	}
	home, err := repo.ListRecent(dbc, user, "home", 200)
	if err != nil {
		t.Fatalf("ListRecent(home): %v", err)
	}
	if len(home) != 3 {
		t.Fatalf("ListRecent(home): want=3 got=%d", len(home))
	}

	got, err := repo.GetByID(dbc, user, other.ID)
	if err != nil || got != nil {
		t.Fatalf("GetByID across users: want nil got=%v err=%v", got, err)
	}
	if err := repo.UpdateFields(dbc, user, all[0].ID, map[string]interface{}{"analysis": datatypes.JSON([]byte(`{"mood_score":0.4}`))}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err = repo.GetByID(dbc, user, all[0].ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if m, ok := got.Snapshot().Mood(); !ok || m != 0.4 {
		t.Fatalf("analysis not stored: mood=%v ok=%v", m, ok)
	}
}

func newGoal(user uuid.UUID, topic string) *types.SignalState {
	now := time.Now().UTC()
	s := &types.SignalState{
		UserID:      user,
		Type:        journal.SignalTypeGoal,
		Topic:       topic,
		DisplayName: topic,
		State:       journal.GoalProposed,
		LastUpdated: now,
		CreatedAt:   now,
	}
	s.SetHistory([]journal.StateRecord{{State: journal.GoalProposed, UpdateType: journal.UpdateNew, At: now}})
	s.SetSources([]string{"e1"})
	return s
}

func TestEntryRepoListCategories(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
	repo := NewEntryRepo(db, testutil.Logger(t))

	user := uuid.New()
	for _, cat := range []string{"work", "", "home", "work"} {
		if _, err := repo.Create(dbc, []*types.Entry{{UserID: user, Text: "entry", Category: cat}}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := repo.Create(dbc, []*types.Entry{{UserID: uuid.New(), Text: "other", Category: "travel"}}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	got, err := repo.ListCategories(dbc, user)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(got) != 2 || got[0] != "home" || got[1] != "work" {
		t.Fatalf("ListCategories: want=[home work] got=%v", got)
	}
}

func TestSignalStateRepoCompareAndSwap(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
	repo := NewSignalStateRepo(db, testutil.Logger(t))
	user := uuid.New()

	s := newGoal(user, "run_a_marathon")
	if err := repo.Create(dbc, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Version != 1 {
		t.Fatalf("version: want=1 got=%d", s.Version)
	}

	loaded, err := repo.GetByTopic(dbc, user, journal.SignalTypeGoal, "run_a_marathon")
	if err != nil || loaded == nil {
		t.Fatalf("GetByTopic: got=%v err=%v", loaded, err)
	}
	loaded.State = journal.GoalActive
	ok, err := repo.UpdateIfVersion(dbc, loaded, 1)
	if err != nil || !ok {
		t.Fatalf("UpdateIfVersion: ok=%v err=%v", ok, err)
	}
	if loaded.Version != 2 {
		t.Fatalf("version after update: want=2 got=%d", loaded.Version)
	}

	// A writer holding the old version loses.
	s.State = journal.GoalAbandoned
	ok, err = repo.UpdateIfVersion(dbc, s, 1)
	if err != nil || ok {
		t.Fatalf("stale UpdateIfVersion: ok=%v err=%v", ok, err)
	}
	again, _ := repo.GetByTopic(dbc, user, journal.SignalTypeGoal, "run_a_marathon")
	if again.State != journal.GoalActive {
		t.Fatalf("state: want=active got=%s", again.State)
	}

	open, err := repo.ListByStates(dbc, user, journal.SignalTypeGoal, []types.GoalState{journal.GoalActive, journal.GoalProposed})
	if err != nil || len(open) != 1 {
		t.Fatalf("ListByStates: len=%d err=%v", len(open), err)
	}
}

func TestSignalStateRepoDuplicateTopicIsConflict(t *testing.T) {
	dbc := testCtx(t)
	repo := NewSignalStateRepo(dbc.Tx, testutil.Logger(t))
	user := uuid.New()
	if err := repo.Create(dbc, newGoal(user, "learn_piano")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(dbc, newGoal(user, "learn_piano"))
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("duplicate Create: want ErrConflict got %v", err)
	}
}

func TestPatternRepoReplaceAllSkipsOlderComputation(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewPatternRepo(db, testutil.Logger(t))
	user := uuid.New()
	t1 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	docs := func(at time.Time, count int) []*types.PatternDocument {
		var out []*types.PatternDocument
		for _, k := range journal.PatternKinds {
			out = append(out, &types.PatternDocument{
				UserID:     user,
				Kind:       k,
				Scope:      journal.ScopeAll,
				EntryCount: count,
				ComputedAt: at,
				Data:       datatypes.JSON([]byte(`{}`)),
			})
		}
		return out
	}

	n, err := repo.ReplaceAll(dbc, docs(t1, 5))
	if err != nil || n != 4 {
		t.Fatalf("ReplaceAll #1: n=%d err=%v", n, err)
	}
	n, err = repo.ReplaceAll(dbc, docs(t1.Add(time.Minute), 6))
	if err != nil || n != 4 {
		t.Fatalf("ReplaceAll #2: n=%d err=%v", n, err)
	}
	n, err = repo.ReplaceAll(dbc, docs(t1.Add(-time.Minute), 99))
	if err != nil {
		t.Fatalf("ReplaceAll stale: %v", err)
	}
	if n != 0 {
		t.Fatalf("ReplaceAll stale: want=0 written got=%d", n)
	}

	got, err := repo.Get(dbc, user, journal.PatternSummary, journal.ScopeAll)
	if err != nil || got == nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.EntryCount != 6 || got.Version != 2 {
		t.Fatalf("Get: want entry_count=6 version=2 got entry_count=%d version=%d", got.EntryCount, got.Version)
	}

	scoped := docs(t1, 5)
	for _, d := range scoped {
		d.Scope = "work"
	}
	if _, err := repo.ReplaceAll(dbc, scoped); err != nil {
		t.Fatalf("ReplaceAll scoped: %v", err)
	}
	all, err := repo.GetByScope(dbc, user, journal.ScopeAll)
	if err != nil || len(all) != 4 {
		t.Fatalf("GetByScope(all): len=%d err=%v", len(all), err)
	}
	for _, d := range all {
		if d.EntryCount != 6 {
			t.Fatalf("scoped run overwrote default scope: %+v", d)
		}
	}
}

func TestExclusionRepoListActive(t *testing.T) {
	dbc := testCtx(t)
	repo := NewExclusionRepo(dbc.Tx, testutil.Logger(t))
	user := uuid.New()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	rows := []*types.Exclusion{
		{UserID: user, PatternType: "activity_negative", Permanent: true},
		{UserID: user, PatternType: "goal_abandonment", ExpiresAt: &future, Context: datatypes.JSON([]byte(`{"topic":"learn_piano"}`))},
		{UserID: user, PatternType: "activity_positive", ExpiresAt: &past},
	}
	for _, x := range rows {
		if _, err := repo.Create(dbc, x); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	active, err := repo.ListActive(dbc, user, now)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListActive: want=2 got=%d", len(active))
	}
	ok, err := repo.Delete(dbc, user, rows[0].ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Delete(dbc, uuid.New(), rows[1].ID)
	if err != nil || ok {
		t.Fatalf("Delete other user: ok=%v err=%v", ok, err)
	}
	all, err := repo.ListByUser(dbc, user)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByUser: len=%d err=%v", len(all), err)
	}
}

func TestUserProfileRepoMergeAndList(t *testing.T) {
	dbc := testCtx(t)
	profiles := NewUserProfileRepo(dbc.Tx, testutil.Logger(t))
	history := NewBurnoutRepo(dbc.Tx, testutil.Logger(t))

	a, b := uuid.New(), uuid.New()
	for _, u := range []uuid.UUID{a, b, a} {
		if err := profiles.Ensure(dbc, u); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	ids, err := profiles.ListUserIDs(dbc, uuid.Nil, 10)
	if err != nil {
		t.Fatalf("ListUserIDs: %v", err)
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("ListUserIDs: missing users in %v", ids)
	}

	assessment := types.BurnoutAssessment{
		RiskScore:          0.72,
		RiskLevel:          journal.RiskCritical,
		Signals:            []string{"fatigue"},
		TriggerShelterMode: true,
		EntryCount:         14,
		AssessedAt:         time.Now().UTC(),
	}
	if err := profiles.MergeLatestBurnout(dbc, a, assessment); err != nil {
		t.Fatalf("MergeLatestBurnout: %v", err)
	}
	p, err := profiles.Get(dbc, a)
	if err != nil || p == nil {
		t.Fatalf("Get: p=%v err=%v", p, err)
	}
	if !p.ShelterMode || p.BurnoutRiskLevel != "critical" {
		t.Fatalf("profile: unexpected %+v", p)
	}
	if got := p.Burnout(); got == nil || got.RiskScore != 0.72 {
		t.Fatalf("latest burnout: unexpected %+v", got)
	}

	if err := history.AppendHistory(dbc, journal.NewBurnoutAssessmentRecord(a, assessment, journal.BurnoutTriggerElevated)); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	recs, err := history.ListHistory(dbc, a, 10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("ListHistory: len=%d err=%v", len(recs), err)
	}
	var signals []string
	_ = json.Unmarshal(recs[0].Signals, &signals)
	if len(signals) != 1 || signals[0] != "fatigue" {
		t.Fatalf("signals: unexpected %v", signals)
	}
}
