package usecase

import (
	"context"
	"log"
	"time"

	"bioshield/internal/domain"
)

// Adjudicator converts oracle verification data into an approve/reject
// decision and drives the claim out of UNDER_REVIEW. It never retries a
// decision: timeout and missing consensus are terminal business outcomes.
type Adjudicator struct {
	Claims    ClaimRepository
	Coverages CoverageRepository
	Oracle    OracleClient
	Policy    TriggerPolicy
	Payout    *PayoutCalculator
	Rounds    VerificationArchive
	Events    EventPublisher
	Clock     Clock
}

// Dispatch sends the verification request and moves the claim
// PENDING->UNDER_REVIEW. The conditional update makes a second dispatch
// fail with ErrClaimInReview without touching state.
func (a *Adjudicator) Dispatch(ctx context.Context, claimID string) (string, error) {
	claim, err := a.Claims.Get(ctx, claimID)
	if err != nil {
		return "", err
	}
	if claim.Status != domain.ClaimPending {
		return "", domain.ErrClaimInReview
	}
	coverage, err := a.Coverages.Get(ctx, claim.CoverageID)
	if err != nil {
		return "", err
	}

	requestID, err := a.Oracle.RequestVerification(ctx, claim.ID, claim.EvidenceRef, coverage.TriggerConditions, claim.Urgent)
	if err != nil {
		return "", err
	}
	if err := a.Claims.MarkUnderReview(ctx, claim.ID, requestID); err != nil {
		return "", err
	}
	return requestID, nil
}

// Evaluate applies the quorum rule to a completed verification round:
// approve only when at least two data points from distinct sources satisfy
// the trigger conditions and the round reached signature consensus.
func (a *Adjudicator) Evaluate(ctx context.Context, request domain.VerificationRequest, conditions []domain.TriggerCondition) (domain.AdjudicationDecision, error) {
	reject := domain.AdjudicationDecision{
		Outcome:    domain.OutcomeReject,
		Reason:     domain.ReasonInsufficientConsensus,
		DataPoints: request.DataPoints,
	}
	if !request.Consensus || len(request.Signatures) < domain.MinConsensusSources {
		return reject, nil
	}
	if len(request.DataPoints) < domain.MinConsensusSources {
		return reject, nil
	}

	sources := make(map[string]struct{})
	for _, point := range request.DataPoints {
		if point.Source == "" {
			continue
		}
		ok, err := a.satisfied(ctx, conditions, point)
		if err != nil {
			return domain.AdjudicationDecision{}, err
		}
		if ok {
			sources[point.Source] = struct{}{}
		}
	}
	if len(sources) < domain.MinConsensusSources {
		return reject, nil
	}
	return domain.AdjudicationDecision{
		Outcome:    domain.OutcomeApprove,
		DataPoints: request.DataPoints,
	}, nil
}

// Poll reads the oracle round for a claim and, when complete, evaluates it.
// A pending round returns (nil, nil).
func (a *Adjudicator) Poll(ctx context.Context, claimID string) (*domain.AdjudicationDecision, error) {
	claim, err := a.Claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.OracleRequestID == "" {
		return nil, domain.ErrValidation
	}
	status, err := a.Oracle.PollStatus(ctx, claim.OracleRequestID)
	if err != nil {
		return nil, err
	}
	if status.Pending {
		return nil, nil
	}
	coverage, err := a.Coverages.Get(ctx, claim.CoverageID)
	if err != nil {
		return nil, err
	}
	request := domain.VerificationRequest{
		ID:         claim.OracleRequestID,
		ClaimID:    claim.ID,
		DataPoints: status.DataPoints,
		Signatures: status.Signatures,
		Consensus:  status.Consensus,
		CreatedAt:  a.now(),
	}
	decision, err := a.Evaluate(ctx, request, coverage.TriggerConditions)
	if err != nil {
		return nil, err
	}
	if a.Rounds != nil {
		if err := a.Rounds.Archive(ctx, request); err != nil {
			log.Printf("archive verification %s failed: %v", request.ID, err)
		}
	}
	return &decision, nil
}

// Timeout resolves a round that produced no data within the configured
// window. This is a terminal reject, not a retry.
func (a *Adjudicator) Timeout(ctx context.Context, claimID string) error {
	return a.Finalize(ctx, claimID, domain.AdjudicationDecision{
		Outcome: domain.OutcomeReject,
		Reason:  domain.ReasonVerificationTimeout,
	})
}

// Finalize moves the claim UNDER_REVIEW->APPROVED|REJECTED and, on
// approval, runs the payout.
func (a *Adjudicator) Finalize(ctx context.Context, claimID string, decision domain.AdjudicationDecision) error {
	claim, err := a.Claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	now := a.now()

	if decision.Outcome == domain.OutcomeApprove {
		if err := a.Claims.Decide(ctx, claim.ID, domain.ClaimApproved, "", now); err != nil {
			return err
		}
		return a.Payout.Execute(ctx, claim.ID)
	}

	reason := decision.Reason
	if reason == "" {
		reason = domain.ReasonVerificationFailed
	}
	if err := a.Claims.Decide(ctx, claim.ID, domain.ClaimRejected, reason, now); err != nil {
		return err
	}
	a.publish(ctx, domain.Event{
		Type:       domain.EventClaimRejected,
		ClaimID:    claim.ID,
		CoverageID: claim.CoverageID,
		OwnerID:    claim.OwnerID,
		Payload:    map[string]any{"reason": reason},
		OccurredAt: now,
	})
	return nil
}

func (a *Adjudicator) satisfied(ctx context.Context, conditions []domain.TriggerCondition, point domain.DataPoint) (bool, error) {
	if a.Policy != nil {
		return a.Policy.Satisfied(ctx, conditions, point)
	}
	return TriggerConditionMet(conditions, point), nil
}

// TriggerConditionMet is the built-in matcher used when no policy bundle is
// configured: a data point satisfies the set when any condition of the same
// type carries the observed outcome.
func TriggerConditionMet(conditions []domain.TriggerCondition, point domain.DataPoint) bool {
	for _, condition := range conditions {
		if condition.Type == point.Type && condition.Outcome == point.Value {
			return true
		}
	}
	return false
}

func (a *Adjudicator) publish(ctx context.Context, event domain.Event) {
	if a.Events == nil {
		return
	}
	if err := a.Events.Publish(ctx, event); err != nil {
		log.Printf("publish %s failed: %v", event.Type, err)
	}
}

func (a *Adjudicator) now() time.Time {
	if a.Clock != nil {
		return a.Clock().UTC()
	}
	return time.Now().UTC()
}
