package workflows

import (
	"context"
	"time"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// Starter launches the adjudication workflow for a submitted claim.
type Starter struct {
	Client       client.Client
	TaskQueue    string
	PollInterval time.Duration
	Timeout      time.Duration
}

func NewStarter(c client.Client, taskQueue string, pollInterval, timeout time.Duration) *Starter {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}
	return &Starter{
		Client:       c,
		TaskQueue:    taskQueue,
		PollInterval: pollInterval,
		Timeout:      timeout,
	}
}

func (s *Starter) Start(ctx context.Context, claim domain.Claim, _ []domain.TriggerCondition) error {
	opts := client.StartWorkflowOptions{
		ID:                    WorkflowID(claim.ID),
		TaskQueue:             s.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	_, err := s.Client.ExecuteWorkflow(ctx, opts, AdjudicationWorkflow, AdjudicationInput{
		ClaimID:      claim.ID,
		Urgent:       claim.Urgent,
		PollInterval: s.PollInterval,
		Timeout:      s.Timeout,
	})
	return err
}

var _ usecase.AdjudicationStarter = (*Starter)(nil)
