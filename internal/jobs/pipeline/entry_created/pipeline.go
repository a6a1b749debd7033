package entry_created

import (
	"errors"
	"fmt"

	jobrt "github.com/yungbote/hearth-backend/internal/jobs/runtime"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	entryID, ok := jc.PayloadUUID("entry_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing entry_id: %w", errs.ErrInvalidArgument))
		return nil
	}

	jc.Progress("insights", 10, "Updating insights")
	report, err := p.insights.OnEntryCreated(jc.Ctx, jc.Job.OwnerUserID, entryID)
	if errors.Is(err, errs.ErrNotFound) {
		jc.Succeed("skipped", map[string]any{"skipped": true, "reason": "entry_missing"})
		return nil
	}
	if err != nil {
		jc.Fail("insights", err)
		return nil
	}
	if len(report.Errors) > 0 {
		p.log.Warn("entry_created finished with stage errors", "entry_id", entryID, "errors", report.Errors)
	}
	jc.Succeed("done", report)
	return nil
}
