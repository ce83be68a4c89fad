package workflows

import (
	"errors"
	"time"

	"bioshield/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AdjudicationWorkflow drives a claim from UNDER_REVIEW to a terminal
// decision. It dispatches the oracle verification, then polls on an
// interval (or on an oracle-data signal) until the verification
// completes or the timeout elapses.
func AdjudicationWorkflow(ctx workflow.Context, input AdjudicationInput) error {
	logger := workflow.GetLogger(ctx)
	input = normalizeInput(input)

	status := &AdjudicationStatus{}
	if err := workflow.SetQueryHandler(ctx, "status", func() (AdjudicationStatus, error) {
		return *status, nil
	}); err != nil {
		return err
	}

	activityOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOpts)

	var dispatched activities.DispatchOutput
	err := workflow.ExecuteActivity(ctx, activities.DispatchActivityName, activities.DispatchInput{
		ClaimID: input.ClaimID,
	}).Get(ctx, &dispatched)
	if err != nil {
		var appErr *temporal.ApplicationError
		if !errors.As(err, &appErr) || appErr.Type() != activities.ErrTypeAlreadyInReview {
			return err
		}
		// A rerun after a failed or restarted first run lands here: the
		// claim is UNDER_REVIEW with its oracle request already recorded,
		// so this run takes over polling instead of abandoning the claim.
		logger.Info("claim already under review, resuming", "claim_id", input.ClaimID)
	} else {
		status.OracleRequestID = dispatched.RequestID
	}
	status.Dispatched = true

	timerCtx, cancelTimers := workflow.WithCancel(ctx)
	defer cancelTimers()
	timeoutFuture := workflow.NewTimer(timerCtx, input.Timeout)

	oracleCh := workflow.GetSignalChannel(ctx, SignalOracleData)

	poll := func() (bool, error) {
		status.Polls++
		var out activities.PollOutput
		if err := workflow.ExecuteActivity(ctx, activities.PollActivityName, activities.PollInput{
			ClaimID: input.ClaimID,
		}).Get(ctx, &out); err != nil {
			return false, err
		}
		return out.Completed, nil
	}

	for !status.Finished {
		pollFuture := workflow.NewTimer(timerCtx, input.PollInterval)
		var pollErr error

		selector := workflow.NewSelector(ctx)
		selector.AddFuture(pollFuture, func(f workflow.Future) {
			if err := f.Get(ctx, nil); err != nil {
				return
			}
			done, err := poll()
			if err != nil {
				pollErr = err
				return
			}
			status.Finished = done
		})
		selector.AddReceive(oracleCh, func(c workflow.ReceiveChannel, more bool) {
			var sig OracleDataSignal
			c.Receive(ctx, &sig)
			done, err := poll()
			if err != nil {
				pollErr = err
				return
			}
			status.Finished = done
		})
		selector.AddFuture(timeoutFuture, func(f workflow.Future) {
			if err := f.Get(ctx, nil); err != nil {
				return
			}
			if err := workflow.ExecuteActivity(ctx, activities.TimeoutActivityName, activities.TimeoutInput{
				ClaimID: input.ClaimID,
			}).Get(ctx, nil); err != nil {
				pollErr = err
				return
			}
			status.Finished = true
		})

		selector.Select(ctx)
		if pollErr != nil {
			logger.Error("adjudication step failed", "claim_id", input.ClaimID, "error", pollErr)
			return pollErr
		}
	}
	cancelTimers()
	return nil
}

func normalizeInput(input AdjudicationInput) AdjudicationInput {
	if input.PollInterval <= 0 {
		input.PollInterval = 30 * time.Second
	}
	if input.Urgent && input.PollInterval > 10*time.Second {
		input.PollInterval = 10 * time.Second
	}
	if input.Timeout <= 0 {
		input.Timeout = 10 * time.Minute
	}
	return input
}
