package jobrun

import (
	"context"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	domainjobs "github.com/yungbote/hearth-backend/internal/domain/jobs"
)

func runWorkflow(t *testing.T, statuses []string) (calls int, err error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(func(ctx context.Context, jobID string) (TickResult, error) {
		s := statuses[calls]
		calls++
		return TickResult{JobID: jobID, Status: s, Stage: "insights"}, nil
	}, activity.RegisterOptions{Name: ActivityTick})
	env.SetStartWorkflowOptions(client.StartWorkflowOptions{ID: "6f1c2d9e-0000-4000-8000-000000000001"})
	env.ExecuteWorkflow(WorkflowName)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	return calls, env.GetWorkflowError()
}

func TestWorkflowCompletesOnSuccess(t *testing.T) {
	calls, err := runWorkflow(t, []string{domainjobs.StatusSucceeded})
	if err != nil || calls != 1 {
		t.Fatalf("want=nil/1 got=%v/%d", err, calls)
	}
}

func TestWorkflowPollsUntilTerminal(t *testing.T) {
	calls, err := runWorkflow(t, []string{domainjobs.StatusRunning, domainjobs.StatusSucceeded})
	if err != nil || calls != 2 {
		t.Fatalf("want=nil/2 got=%v/%d", err, calls)
	}
}

func TestWorkflowFailsOnFailedJob(t *testing.T) {
	_, err := runWorkflow(t, []string{domainjobs.StatusFailed})
	if err == nil {
		t.Fatalf("want workflow error for failed job")
	}
}
