package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/hearth-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

func newJob(owner uuid.UUID, jobType, status string, created time.Time) *types.JobRun {
	return &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: owner,
		JobType:     jobType,
		EntityType:  "journal_entry",
		EntityID:    ptrUUID(uuid.New()),
		Status:      status,
		Stage:       status,
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	owner := uuid.New()

	queued := newJob(owner, "entry_created", "queued", now.Add(-3*time.Hour))
	failed := newJob(owner, "entry_created", "failed", now.Add(-2*time.Hour))
	failed.LastErrorAt = ptrTime(now.Add(-2 * time.Hour))
	staleRunning := newJob(owner, "entry_created", "running", now.Add(-1*time.Hour))
	staleRunning.HeartbeatAt = ptrTime(now.Add(-10 * time.Hour))
	exhausted := newJob(owner, "entry_created", "failed", now.Add(-4*time.Hour))
	exhausted.Attempts = 3
	exhausted.LastErrorAt = ptrTime(now.Add(-4 * time.Hour))

	created, err := repo.Create(dbc, []*types.JobRun{queued, failed, staleRunning, exhausted})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("Create: want=4 got=%d", len(created))
	}
	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{queued.ID, failed.ID, staleRunning.ID}); err != nil || len(rows) != 3 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	for i, want := range []uuid.UUID{queued.ID, failed.ID, staleRunning.ID} {
		got, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour)
		if err != nil {
			t.Fatalf("ClaimNextRunnable #%d: %v", i+1, err)
		}
		if got == nil || got.ID != want {
			t.Fatalf("ClaimNextRunnable #%d: want=%v got=%v", i+1, want, got)
		}
		if got.Status != "running" {
			t.Fatalf("ClaimNextRunnable #%d: want status running got %q", i+1, got.Status)
		}
	}
	if got, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour); err != nil || got != nil {
		t.Fatalf("ClaimNextRunnable #4: want nil got=%v err=%v", got, err)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{"succeeded"}, map[string]interface{}{"status": "succeeded", "stage": "done"})
	if err != nil || !ok {
		t.Fatalf("UpdateFieldsUnlessStatus: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{"succeeded"}, map[string]interface{}{"status": "failed"})
	if err != nil || ok {
		t.Fatalf("UpdateFieldsUnlessStatus on terminal job: ok=%v err=%v", ok, err)
	}
	if err := repo.Heartbeat(dbc, failed.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	runnable := newJob(owner, "pattern_recompute", "queued", now)
	if _, err := repo.Create(dbc, []*types.JobRun{runnable}); err != nil {
		t.Fatalf("seed runnable: %v", err)
	}
	exists, err := repo.ExistsRunnable(dbc, owner, "pattern_recompute", "", nil)
	if err != nil || !exists {
		t.Fatalf("ExistsRunnable: exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsRunnable(dbc, owner, "pattern_recompute", "journal_entry", runnable.EntityID)
	if err != nil || !exists {
		t.Fatalf("ExistsRunnable (scoped): exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsRunnable(dbc, owner, "burnout_assess", "", nil)
	if err != nil || exists {
		t.Fatalf("ExistsRunnable (other): exists=%v err=%v", exists, err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrUUID(u uuid.UUID) *uuid.UUID { return &u }
