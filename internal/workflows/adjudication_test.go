package workflows

import (
	"context"
	"testing"
	"time"

	"bioshield/internal/activities"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func TestAdjudicationWorkflowFinalizesOnPoll(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	polls := 0
	env.RegisterActivityWithOptions(func(context.Context, activities.DispatchInput) (activities.DispatchOutput, error) {
		return activities.DispatchOutput{RequestID: "req-1"}, nil
	}, activity.RegisterOptions{Name: activities.DispatchActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.PollInput) (activities.PollOutput, error) {
		polls++
		if polls < 3 {
			return activities.PollOutput{}, nil
		}
		return activities.PollOutput{Completed: true, Outcome: "approve"}, nil
	}, activity.RegisterOptions{Name: activities.PollActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.TimeoutInput) error {
		t.Errorf("timeout activity should not run")
		return nil
	}, activity.RegisterOptions{Name: activities.TimeoutActivityName})

	env.ExecuteWorkflow(AdjudicationWorkflow, AdjudicationInput{
		ClaimID:      "claim-1",
		PollInterval: 30 * time.Second,
		Timeout:      10 * time.Minute,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if polls != 3 {
		t.Fatalf("expected 3 polls, got %d", polls)
	}
}

func TestAdjudicationWorkflowTimesOut(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	timedOut := false
	env.RegisterActivityWithOptions(func(context.Context, activities.DispatchInput) (activities.DispatchOutput, error) {
		return activities.DispatchOutput{RequestID: "req-1"}, nil
	}, activity.RegisterOptions{Name: activities.DispatchActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.PollInput) (activities.PollOutput, error) {
		return activities.PollOutput{}, nil
	}, activity.RegisterOptions{Name: activities.PollActivityName})
	env.RegisterActivityWithOptions(func(_ context.Context, input activities.TimeoutInput) error {
		if input.ClaimID != "claim-1" {
			t.Errorf("timeout for claim %s", input.ClaimID)
		}
		timedOut = true
		return nil
	}, activity.RegisterOptions{Name: activities.TimeoutActivityName})

	env.ExecuteWorkflow(AdjudicationWorkflow, AdjudicationInput{
		ClaimID:      "claim-1",
		PollInterval: 1 * time.Minute,
		Timeout:      5 * time.Minute,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if !timedOut {
		t.Fatalf("expected timeout activity to run")
	}
}

func TestAdjudicationWorkflowOracleSignalTriggersPoll(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	polls := 0
	env.RegisterActivityWithOptions(func(context.Context, activities.DispatchInput) (activities.DispatchOutput, error) {
		return activities.DispatchOutput{RequestID: "req-1"}, nil
	}, activity.RegisterOptions{Name: activities.DispatchActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.PollInput) (activities.PollOutput, error) {
		polls++
		return activities.PollOutput{Completed: true, Outcome: "reject"}, nil
	}, activity.RegisterOptions{Name: activities.PollActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.TimeoutInput) error {
		return nil
	}, activity.RegisterOptions{Name: activities.TimeoutActivityName})

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(SignalOracleData, OracleDataSignal{RequestID: "req-1"})
	}, 5*time.Second)

	env.ExecuteWorkflow(AdjudicationWorkflow, AdjudicationInput{
		ClaimID:      "claim-1",
		PollInterval: 10 * time.Minute,
		Timeout:      time.Hour,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if polls != 1 {
		t.Fatalf("expected signal-driven poll, got %d polls", polls)
	}
}

// A rerun against a claim that is already UNDER_REVIEW must keep polling
// until the claim is finalized rather than completing without a decision.
func TestAdjudicationWorkflowResumesWhenAlreadyInReview(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	polls := 0
	env.RegisterActivityWithOptions(func(context.Context, activities.DispatchInput) (activities.DispatchOutput, error) {
		return activities.DispatchOutput{}, temporal.NewNonRetryableApplicationError(
			"claim already under review", activities.ErrTypeAlreadyInReview, nil)
	}, activity.RegisterOptions{Name: activities.DispatchActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.PollInput) (activities.PollOutput, error) {
		polls++
		if polls < 2 {
			return activities.PollOutput{}, nil
		}
		return activities.PollOutput{Completed: true, Outcome: "approve"}, nil
	}, activity.RegisterOptions{Name: activities.PollActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.TimeoutInput) error {
		t.Errorf("timeout activity should not run")
		return nil
	}, activity.RegisterOptions{Name: activities.TimeoutActivityName})

	env.ExecuteWorkflow(AdjudicationWorkflow, AdjudicationInput{
		ClaimID:      "claim-1",
		PollInterval: 30 * time.Second,
		Timeout:      10 * time.Minute,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if polls != 2 {
		t.Fatalf("expected resumed run to poll to completion, got %d polls", polls)
	}
}

// The resumed run also honors the verification timeout, so a claim whose
// oracle never answers is still finalized.
func TestAdjudicationWorkflowResumedRunTimesOut(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	timedOut := false
	env.RegisterActivityWithOptions(func(context.Context, activities.DispatchInput) (activities.DispatchOutput, error) {
		return activities.DispatchOutput{}, temporal.NewNonRetryableApplicationError(
			"claim already under review", activities.ErrTypeAlreadyInReview, nil)
	}, activity.RegisterOptions{Name: activities.DispatchActivityName})
	env.RegisterActivityWithOptions(func(context.Context, activities.PollInput) (activities.PollOutput, error) {
		return activities.PollOutput{}, nil
	}, activity.RegisterOptions{Name: activities.PollActivityName})
	env.RegisterActivityWithOptions(func(_ context.Context, input activities.TimeoutInput) error {
		if input.ClaimID != "claim-1" {
			t.Errorf("timeout for claim %s", input.ClaimID)
		}
		timedOut = true
		return nil
	}, activity.RegisterOptions{Name: activities.TimeoutActivityName})

	env.ExecuteWorkflow(AdjudicationWorkflow, AdjudicationInput{
		ClaimID:      "claim-1",
		PollInterval: 1 * time.Minute,
		Timeout:      5 * time.Minute,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if !timedOut {
		t.Fatalf("expected timeout activity to run")
	}
}
