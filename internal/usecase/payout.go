package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"bioshield/internal/domain"
)

// PayoutCalculator settles an APPROVED claim. Capacity is reserved under a
// row lock before the chain transfer so a concurrent approval that loses the
// race is rejected without ever moving funds; the claim flips to PAID only
// after the transfer confirmed, and a failed transfer hands the reserved
// capacity back.
type PayoutCalculator struct {
	Claims    ClaimRepository
	Coverages CoverageRepository
	Store     PayoutStore
	Chain     ChainClient
	Events    EventPublisher
	Cache     Cache
	Clock     Clock
}

// Execute settles a claim in three steps: reserve capacity against the
// coverage, transfer on chain, commit the claim to PAID. Concurrent
// approvals against the same coverage resolve at the reservation; only the
// winner reaches the chain. A failed transfer releases the reservation,
// leaves the claim APPROVED and surfaces ErrTransferFailure; RetryPayout is
// the operational retry hook.
func (p *PayoutCalculator) Execute(ctx context.Context, claimID string) error {
	claim, err := p.Claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.Status != domain.ClaimApproved {
		return domain.ErrIllegalTransition
	}
	coverage, err := p.Coverages.Get(ctx, claim.CoverageID)
	if err != nil {
		return err
	}

	reservation, err := p.Store.Reserve(ctx, ReservePayoutParams{
		CoverageID: coverage.ID,
		ClaimID:    claim.ID,
		Amount:     claim.Amount,
	})
	if err != nil {
		return err
	}

	txRef, err := p.Chain.ProcessPayout(ctx, PayoutTransfer{
		ClaimID:     claim.ID,
		Amount:      reservation.Amount,
		Recipient:   claim.OwnerID,
		PayDiscount: coverage.PaidWithDiscount,
		Chain:       coverage.Chain,
	})
	if err != nil {
		p.release(ctx, coverage.ID, reservation.Amount)
		return errors.Join(domain.ErrTransferFailure, err)
	}

	if err := p.Store.Commit(ctx, CommitPayoutParams{
		ClaimID: claim.ID,
		TxRef:   txRef,
		At:      p.now(),
	}); err != nil {
		p.release(ctx, coverage.ID, reservation.Amount)
		return err
	}

	p.invalidate(ctx, coverageCacheKey(coverage.ID))
	p.invalidate(ctx, ownerCoveragesCacheKey(coverage.OwnerID))
	p.publish(ctx, domain.Event{
		Type:       domain.EventClaimApproved,
		ClaimID:    claim.ID,
		CoverageID: coverage.ID,
		OwnerID:    claim.OwnerID,
		Payload: map[string]any{
			"amount":    reservation.Amount,
			"tx_ref":    txRef,
			"exhausted": reservation.Exhausted,
		},
		OccurredAt: p.now(),
	})
	return nil
}

func (p *PayoutCalculator) release(ctx context.Context, coverageID string, amount int64) {
	if err := p.Store.Release(ctx, coverageID, amount); err != nil {
		log.Printf("release payout reservation on coverage %s failed: %v", coverageID, err)
	}
}

// RetryPayout re-runs settlement for a claim stuck in APPROVED after a
// transfer failure. It is invoked by operators, never by an internal loop.
func (p *PayoutCalculator) RetryPayout(ctx context.Context, claimID, ownerID string) error {
	claim, err := p.Claims.GetOwned(ctx, claimID, ownerID)
	if err != nil {
		return err
	}
	if claim.Status != domain.ClaimApproved {
		return domain.ErrIllegalTransition
	}
	return p.Execute(ctx, claim.ID)
}

func (p *PayoutCalculator) publish(ctx context.Context, event domain.Event) {
	if p.Events == nil {
		return
	}
	if err := p.Events.Publish(ctx, event); err != nil {
		log.Printf("publish %s failed: %v", event.Type, err)
	}
}

func (p *PayoutCalculator) invalidate(ctx context.Context, key string) {
	if p.Cache == nil {
		return
	}
	if err := p.Cache.Invalidate(ctx, key); err != nil {
		log.Printf("cache invalidate %s failed: %v", key, err)
	}
}

func (p *PayoutCalculator) now() time.Time {
	if p.Clock != nil {
		return p.Clock().UTC()
	}
	return time.Now().UTC()
}
