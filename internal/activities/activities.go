package activities

import (
	"context"
	"errors"
	"fmt"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

const (
	DispatchActivityName = "DispatchVerification"
	PollActivityName     = "PollVerification"
	TimeoutActivityName  = "TimeoutVerification"

	ErrTypeAlreadyInReview = "claim_already_in_review"
)

type Activities struct {
	Adjudicator *usecase.Adjudicator
}

func New(adjudicator *usecase.Adjudicator) *Activities {
	return &Activities{Adjudicator: adjudicator}
}

type DispatchInput struct {
	ClaimID string
}

type DispatchOutput struct {
	RequestID string
}

type PollInput struct {
	ClaimID string
}

type PollOutput struct {
	Completed bool
	Outcome   string
	Reason    string
}

type TimeoutInput struct {
	ClaimID string
}

func (a *Activities) DispatchVerification(ctx context.Context, input DispatchInput) (DispatchOutput, error) {
	if a == nil || a.Adjudicator == nil {
		return DispatchOutput{}, fmt.Errorf("adjudicator not configured")
	}
	requestID, err := a.Adjudicator.Dispatch(ctx, input.ClaimID)
	if err != nil {
		if errors.Is(err, domain.ErrClaimInReview) {
			return DispatchOutput{}, temporal.NewNonRetryableApplicationError(
				"claim already under review", ErrTypeAlreadyInReview, err)
		}
		return DispatchOutput{}, err
	}
	return DispatchOutput{RequestID: requestID}, nil
}

func (a *Activities) PollVerification(ctx context.Context, input PollInput) (PollOutput, error) {
	if a == nil || a.Adjudicator == nil {
		return PollOutput{}, fmt.Errorf("adjudicator not configured")
	}
	decision, err := a.Adjudicator.Poll(ctx, input.ClaimID)
	if err != nil {
		return PollOutput{}, err
	}
	if decision == nil {
		return PollOutput{}, nil
	}
	if err := a.Adjudicator.Finalize(ctx, input.ClaimID, *decision); err != nil {
		return PollOutput{}, err
	}
	logger := activity.GetLogger(ctx)
	logger.Info("verification completed", "claim_id", input.ClaimID, "outcome", decision.Outcome)
	return PollOutput{
		Completed: true,
		Outcome:   string(decision.Outcome),
		Reason:    decision.Reason,
	}, nil
}

func (a *Activities) TimeoutVerification(ctx context.Context, input TimeoutInput) error {
	if a == nil || a.Adjudicator == nil {
		return fmt.Errorf("adjudicator not configured")
	}
	return a.Adjudicator.Timeout(ctx, input.ClaimID)
}
