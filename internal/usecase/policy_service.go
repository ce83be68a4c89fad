package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"bioshield/internal/domain"

	"github.com/google/uuid"
)

const (
	coverageCacheTTL = 5 * time.Minute

	// discountTokenKind is the utility token accepted for discounted
	// premium payment.
	discountTokenKind = "lives"

	// chainStateCancelled is the gateway's state string for a coverage
	// whose cancellation confirmed on chain.
	chainStateCancelled = "cancelled"
)

func coverageCacheKey(id string) string {
	return "coverage:" + id
}

func ownerCoveragesCacheKey(ownerID string) string {
	return "user:" + ownerID + ":coverages"
}

// PolicyService owns the coverage lifecycle: quoting, purchase, cancellation
// and reads. Expiry lives in ExpirySweeper, exhaustion in PayoutCalculator.
type PolicyService struct {
	Coverages   CoverageRepository
	Chain       ChainClient
	Pricing     *PricingEngine
	Market      *MarketFeed
	Utilization *UtilizationFeed
	Cache       Cache
	Events      EventPublisher
	Clock       Clock
}

type QuoteInput struct {
	Amount        int64
	PeriodSeconds int64
	RiskScore     int
	Tier          domain.UserTier
	PayWithToken  bool
}

func (s *PolicyService) Quote(ctx context.Context, in QuoteInput) (PremiumBreakdown, error) {
	market, err := s.Market.Snapshot(ctx)
	if err != nil {
		return PremiumBreakdown{}, err
	}
	utilization, err := s.Utilization.Snapshot(ctx)
	if err != nil {
		return PremiumBreakdown{}, err
	}
	return s.Pricing.ComputePremium(PremiumInput{
		Amount:        in.Amount,
		PeriodSeconds: in.PeriodSeconds,
		RiskScore:     in.RiskScore,
		Market:        market,
		Utilization:   utilization,
		Tier:          in.Tier,
		PayWithToken:  in.PayWithToken,
	})
}

type PurchaseInput struct {
	OwnerID           string
	Amount            int64
	PeriodSeconds     int64
	CoverageType      domain.CoverageType
	TriggerConditions []domain.TriggerCondition
	RiskScore         int
	Tier              domain.UserTier
	PayWithToken      bool
	Chain             string
}

// Purchase prices the coverage, settles the premium on chain and records
// the coverage as ACTIVE. The coverage exists only once the external
// transaction confirmed.
func (s *PolicyService) Purchase(ctx context.Context, in PurchaseInput) (domain.Coverage, PremiumBreakdown, error) {
	breakdown, err := s.Quote(ctx, QuoteInput{
		Amount:        in.Amount,
		PeriodSeconds: in.PeriodSeconds,
		RiskScore:     in.RiskScore,
		Tier:          in.Tier,
		PayWithToken:  in.PayWithToken,
	})
	if err != nil {
		return domain.Coverage{}, PremiumBreakdown{}, err
	}

	if in.PayWithToken {
		balance, err := s.Chain.GetBalance(ctx, in.OwnerID, discountTokenKind)
		if err != nil {
			return domain.Coverage{}, PremiumBreakdown{}, errors.Join(domain.ErrTransferFailure, err)
		}
		if balance < breakdown.FinalPremium {
			return domain.Coverage{}, PremiumBreakdown{}, fmt.Errorf("%w: token balance %d below premium %d", domain.ErrValidation, balance, breakdown.FinalPremium)
		}
	}

	txRef, err := s.Chain.SubmitTransaction(ctx, "create_coverage", map[string]any{
		"owner":         in.OwnerID,
		"amount":        in.Amount,
		"premium":       breakdown.FinalPremium,
		"coverage_type": string(in.CoverageType),
		"pay_discount":  in.PayWithToken,
		"chain":         in.Chain,
	})
	if err != nil {
		return domain.Coverage{}, PremiumBreakdown{}, errors.Join(domain.ErrTransferFailure, err)
	}

	coverage, err := domain.NewCoverage(domain.NewCoverageParams{
		OwnerID:           in.OwnerID,
		Amount:            in.Amount,
		Premium:           breakdown.FinalPremium,
		CoverageType:      in.CoverageType,
		TriggerConditions: in.TriggerConditions,
		RiskScore:         in.RiskScore,
		PeriodSeconds:     in.PeriodSeconds,
		PaidWithDiscount:  in.PayWithToken,
		Chain:             in.Chain,
		TxRef:             txRef,
		Now:               s.now(),
	})
	if err != nil {
		return domain.Coverage{}, PremiumBreakdown{}, err
	}
	coverage.ID = uuid.NewString()

	created, err := s.Coverages.Create(ctx, coverage)
	if err != nil {
		return domain.Coverage{}, PremiumBreakdown{}, err
	}

	s.invalidate(ctx, ownerCoveragesCacheKey(in.OwnerID))
	s.publish(ctx, domain.Event{
		Type:       domain.EventCoverageCreated,
		CoverageID: created.ID,
		OwnerID:    created.OwnerID,
		Payload: map[string]any{
			"amount":        created.Amount,
			"coverage_type": string(created.CoverageType),
			"chain":         created.Chain,
		},
		OccurredAt: s.now(),
	})
	return created, breakdown, nil
}

type CancelResult struct {
	Coverage     domain.Coverage
	RefundAmount int64
	RefundTxRef  string
	RefundFailed bool
}

// Cancel flips an ACTIVE coverage to CANCELLED and computes the prorated
// refund. The status change is synchronous; a failed refund transfer never
// reverts the cancellation, the refund owed is recorded with an empty tx
// ref and RetryRefund settles it later.
func (s *PolicyService) Cancel(ctx context.Context, coverageID, ownerID string) (CancelResult, error) {
	coverage, err := s.Coverages.GetOwned(ctx, coverageID, ownerID)
	if err != nil {
		return CancelResult{}, err
	}
	if coverage.Status != domain.CoverageActive {
		return CancelResult{}, domain.ErrInactiveCoverage
	}

	if _, err := s.Chain.SubmitTransaction(ctx, "cancel_coverage", map[string]any{
		"coverage_id": coverage.ID,
		"chain":       coverage.Chain,
	}); err != nil {
		return CancelResult{}, errors.Join(domain.ErrTransferFailure, err)
	}

	now := s.now()
	if err := s.Coverages.UpdateStatus(ctx, coverage.ID, domain.CoverageActive, domain.CoverageCancelled); err != nil {
		return CancelResult{}, err
	}
	coverage.Status = domain.CoverageCancelled
	s.invalidate(ctx, coverageCacheKey(coverage.ID))
	s.invalidate(ctx, ownerCoveragesCacheKey(ownerID))

	result := CancelResult{
		Coverage:     coverage,
		RefundAmount: RefundAmount(coverage.Premium, coverage.StartAt, coverage.EndAt, now),
	}
	if result.RefundAmount > 0 {
		refundTx, err := s.Chain.ProcessRefund(ctx, RefundTransfer{
			CoverageID:  coverage.ID,
			Amount:      result.RefundAmount,
			Recipient:   ownerID,
			PayDiscount: coverage.PaidWithDiscount,
			Chain:       coverage.Chain,
		})
		if err != nil {
			result.RefundFailed = true
			log.Printf("refund transfer failed for coverage %s: %v", coverage.ID, err)
		} else {
			result.RefundTxRef = refundTx
		}
		if err := s.Coverages.RecordRefund(ctx, coverage.ID, result.RefundAmount, result.RefundTxRef); err != nil {
			log.Printf("record refund for coverage %s failed: %v", coverage.ID, err)
		}
		coverage.RefundAmount = result.RefundAmount
		coverage.RefundTxRef = result.RefundTxRef
		result.Coverage = coverage
	}

	s.publish(ctx, domain.Event{
		Type:       domain.EventCoverageCancelled,
		CoverageID: coverage.ID,
		OwnerID:    ownerID,
		Payload: map[string]any{
			"refund_amount": result.RefundAmount,
			"refund_failed": result.RefundFailed,
		},
		OccurredAt: now,
	})
	return result, nil
}

type RefundRetryResult struct {
	Coverage     domain.Coverage
	RefundAmount int64
	RefundTxRef  string
}

// RetryRefund re-runs the refund transfer for a cancelled coverage whose
// refund is still outstanding. It is invoked by operators, never by an
// internal loop. The gateway must report the coverage cancelled on chain
// before any funds move again.
func (s *PolicyService) RetryRefund(ctx context.Context, coverageID, ownerID string) (RefundRetryResult, error) {
	coverage, err := s.Coverages.GetOwned(ctx, coverageID, ownerID)
	if err != nil {
		return RefundRetryResult{}, err
	}
	if !coverage.RefundPending() {
		return RefundRetryResult{}, domain.ErrIllegalTransition
	}

	state, err := s.Chain.GetCoverageState(ctx, coverage.ID, coverage.Chain)
	if err != nil {
		return RefundRetryResult{}, errors.Join(domain.ErrTransferFailure, err)
	}
	if state != chainStateCancelled {
		return RefundRetryResult{}, fmt.Errorf("%w: coverage is %q on chain", domain.ErrIllegalTransition, state)
	}

	refundTx, err := s.Chain.ProcessRefund(ctx, RefundTransfer{
		CoverageID:  coverage.ID,
		Amount:      coverage.RefundAmount,
		Recipient:   ownerID,
		PayDiscount: coverage.PaidWithDiscount,
		Chain:       coverage.Chain,
	})
	if err != nil {
		return RefundRetryResult{}, errors.Join(domain.ErrTransferFailure, err)
	}
	if err := s.Coverages.RecordRefund(ctx, coverage.ID, coverage.RefundAmount, refundTx); err != nil {
		return RefundRetryResult{}, err
	}
	coverage.RefundTxRef = refundTx
	s.invalidate(ctx, coverageCacheKey(coverage.ID))
	s.invalidate(ctx, ownerCoveragesCacheKey(ownerID))
	s.publish(ctx, domain.Event{
		Type:       domain.EventCoverageRefunded,
		CoverageID: coverage.ID,
		OwnerID:    ownerID,
		Payload: map[string]any{
			"refund_amount": coverage.RefundAmount,
			"refund_tx_ref": refundTx,
		},
		OccurredAt: s.now(),
	})
	return RefundRetryResult{
		Coverage:     coverage,
		RefundAmount: coverage.RefundAmount,
		RefundTxRef:  refundTx,
	}, nil
}

// Get memoizes coverage reads; every mutation path invalidates the entry.
func (s *PolicyService) Get(ctx context.Context, coverageID string) (domain.Coverage, error) {
	key := coverageCacheKey(coverageID)
	if s.Cache != nil {
		if raw, ok, err := s.Cache.Get(ctx, key); err == nil && ok {
			var coverage domain.Coverage
			if err := json.Unmarshal(raw, &coverage); err == nil {
				return coverage, nil
			}
		}
	}
	coverage, err := s.Coverages.Get(ctx, coverageID)
	if err != nil {
		return domain.Coverage{}, err
	}
	if s.Cache != nil {
		if raw, err := json.Marshal(coverage); err == nil {
			_ = s.Cache.Set(ctx, key, raw, coverageCacheTTL)
		}
	}
	return coverage, nil
}

type CoveragePage struct {
	Items []domain.Coverage
	Page  int
	Limit int
	Total int64
}

func (s *PolicyService) ListOwned(ctx context.Context, filter CoverageListFilter) (CoveragePage, error) {
	if filter.OwnerID == "" {
		return CoveragePage{}, domain.ErrValidation
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	items, total, err := s.Coverages.List(ctx, filter)
	if err != nil {
		return CoveragePage{}, err
	}
	return CoveragePage{Items: items, Page: filter.Page, Limit: filter.Limit, Total: total}, nil
}

func (s *PolicyService) publish(ctx context.Context, event domain.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		log.Printf("publish %s failed: %v", event.Type, err)
	}
}

func (s *PolicyService) invalidate(ctx context.Context, key string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, key); err != nil {
		log.Printf("cache invalidate %s failed: %v", key, err)
	}
}

func (s *PolicyService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
