package usecase

import (
	"context"
	"time"

	"bioshield/internal/domain"
)

type Clock func() time.Time

type CoverageRepository interface {
	Create(ctx context.Context, coverage domain.Coverage) (domain.Coverage, error)
	Get(ctx context.Context, id string) (domain.Coverage, error)
	GetOwned(ctx context.Context, id, ownerID string) (domain.Coverage, error)
	List(ctx context.Context, filter CoverageListFilter) ([]domain.Coverage, int64, error)
	// UpdateStatus applies from->to conditionally; domain.ErrIllegalTransition
	// when the row is no longer in the from status.
	UpdateStatus(ctx context.Context, id string, from, to domain.CoverageStatus) error
	// RecordRefund stores the refund owed to a cancelled coverage; txRef is
	// empty while the transfer is still outstanding.
	RecordRefund(ctx context.Context, id string, amount int64, txRef string) error
	MarkExpired(ctx context.Context, now time.Time) ([]domain.Coverage, error)
	ListExpiring(ctx context.Context, from, until time.Time) ([]domain.Coverage, error)
}

type ClaimRepository interface {
	Create(ctx context.Context, claim domain.Claim) (domain.Claim, error)
	Get(ctx context.Context, id string) (domain.Claim, error)
	GetOwned(ctx context.Context, id, ownerID string) (domain.Claim, error)
	ListByCoverage(ctx context.Context, coverageID string) ([]domain.Claim, error)
	// MarkUnderReview flips PENDING->UNDER_REVIEW and records the oracle
	// request id; domain.ErrClaimInReview when the claim already left PENDING.
	MarkUnderReview(ctx context.Context, id, oracleRequestID string) error
	// Decide flips UNDER_REVIEW->APPROVED|REJECTED.
	Decide(ctx context.Context, id string, to domain.ClaimStatus, reason string, at time.Time) error
}

type ReservePayoutParams struct {
	CoverageID string
	ClaimID    string
	// Amount is the requested settlement; the store caps it at the
	// coverage's remaining capacity.
	Amount int64
}

type PayoutReservation struct {
	Amount    int64
	Consumed  int64
	Exhausted bool
}

type CommitPayoutParams struct {
	ClaimID string
	TxRef   string
	At      time.Time
}

// PayoutStore serializes the per-coverage capacity update. Reserve locks
// the coverage row, verifies the claim is APPROVED and withholds capacity
// before any funds move; Commit flips the claim to PAID once the transfer
// confirmed; Release hands the capacity back after a failed transfer.
type PayoutStore interface {
	Reserve(ctx context.Context, params ReservePayoutParams) (PayoutReservation, error)
	Commit(ctx context.Context, params CommitPayoutParams) error
	Release(ctx context.Context, coverageID string, amount int64) error
}

type CoverageListFilter struct {
	OwnerID string
	Status  domain.CoverageStatus
	Page    int
	Limit   int
}

type PayoutTransfer struct {
	ClaimID     string
	Amount      int64
	Recipient   string
	PayDiscount bool
	Chain       string
}

type RefundTransfer struct {
	CoverageID  string
	Amount      int64
	Recipient   string
	PayDiscount bool
	Chain       string
}

type PoolData struct {
	TotalCoverage  int64
	TotalLiquidity int64
}

type ChainClient interface {
	SubmitTransaction(ctx context.Context, op string, params map[string]any) (string, error)
	GetBalance(ctx context.Context, address, tokenKind string) (int64, error)
	GetCoverageState(ctx context.Context, id, chain string) (string, error)
	ProcessPayout(ctx context.Context, transfer PayoutTransfer) (string, error)
	ProcessRefund(ctx context.Context, transfer RefundTransfer) (string, error)
	GetPoolData(ctx context.Context) (PoolData, error)
}

type OracleStatus struct {
	Pending    bool
	DataPoints []domain.DataPoint
	Signatures [][]byte
	Consensus  bool
}

type OracleClient interface {
	RequestVerification(ctx context.Context, claimID, evidenceRef string, conditions []domain.TriggerCondition, urgent bool) (string, error)
	PollStatus(ctx context.Context, requestID string) (OracleStatus, error)
}

type EvidenceStore interface {
	Upload(ctx context.Context, blob []byte) (string, error)
}

// VerificationArchive keeps completed oracle rounds for audit.
type VerificationArchive interface {
	Archive(ctx context.Context, request domain.VerificationRequest) error
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher emits outbound notifications. Callers never await a
// subscriber; a publish error is logged and dropped.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// TriggerPolicy decides whether a single data point satisfies the
// coverage's trigger-condition set.
type TriggerPolicy interface {
	Satisfied(ctx context.Context, conditions []domain.TriggerCondition, point domain.DataPoint) (bool, error)
}

type MarketDataSource interface {
	Fetch(ctx context.Context) (domain.MarketSnapshot, error)
}

// AdjudicationStarter hands a claim to the asynchronous adjudication
// machinery (the temporal workflow in production).
type AdjudicationStarter interface {
	Start(ctx context.Context, claim domain.Claim, conditions []domain.TriggerCondition) error
}
