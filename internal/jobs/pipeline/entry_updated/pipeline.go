package entry_updated

import (
	"errors"
	"fmt"

	jobrt "github.com/yungbote/hearth-backend/internal/jobs/runtime"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/services"
)

// Run compares the analysis fields captured at update time with the stored entry.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	entryID, ok := jc.PayloadUUID("entry_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing entry_id: %w", errs.ErrInvalidArgument))
		return nil
	}
	before := services.TrackedFields{
		GoalUpdate: jc.PayloadBool("had_goal_update"),
		MoodScore:  jc.PayloadBool("had_mood_score"),
	}

	jc.Progress("insights", 10, "Updating insights")
	report, err := p.insights.OnEntryUpdated(jc.Ctx, jc.Job.OwnerUserID, entryID, before)
	if errors.Is(err, errs.ErrNotFound) {
		jc.Succeed("skipped", map[string]any{"skipped": true, "reason": "entry_missing"})
		return nil
	}
	if err != nil {
		jc.Fail("insights", err)
		return nil
	}
	if report.Skipped {
		jc.Succeed("skipped", report)
		return nil
	}
	jc.Succeed("done", report)
	return nil
}
