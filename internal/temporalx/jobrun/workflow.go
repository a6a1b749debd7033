package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	domainjobs "github.com/yungbote/hearth-backend/internal/domain/jobs"
)

const (
	pollInterval = 2 * time.Second
	maxTicks     = 50
)

// Workflow drives one job_run row to a terminal state. The workflow id is the job id, and
// retries of a failed job happen through the workflow retry policy set at dispatch.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	for tick := 1; tick <= maxTicks; tick++ {
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, jobID).Get(ctx, &out); err != nil {
			return err
		}
		switch out.Status {
		case domainjobs.StatusSucceeded:
			return nil
		case domainjobs.StatusFailed:
			return fmt.Errorf("job failed (stage=%s)", out.Stage)
		}
		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("job %s did not finish after %d ticks", jobID, maxTicks)
}
