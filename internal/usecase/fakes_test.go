package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bioshield/internal/domain"
)

type memCoverages struct {
	mu    sync.Mutex
	items map[string]domain.Coverage
}

func newMemCoverages(coverages ...domain.Coverage) *memCoverages {
	repo := &memCoverages{items: make(map[string]domain.Coverage)}
	for _, coverage := range coverages {
		repo.items[coverage.ID] = coverage
	}
	return repo
}

func (r *memCoverages) Create(_ context.Context, coverage domain.Coverage) (domain.Coverage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[coverage.ID] = coverage
	return coverage, nil
}

func (r *memCoverages) Get(_ context.Context, id string) (domain.Coverage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coverage, ok := r.items[id]
	if !ok {
		return domain.Coverage{}, domain.ErrNotFound
	}
	return coverage, nil
}

func (r *memCoverages) GetOwned(ctx context.Context, id, ownerID string) (domain.Coverage, error) {
	coverage, err := r.Get(ctx, id)
	if err != nil {
		return domain.Coverage{}, err
	}
	if coverage.OwnerID != ownerID {
		return domain.Coverage{}, domain.ErrNotFound
	}
	return coverage, nil
}

func (r *memCoverages) List(_ context.Context, filter CoverageListFilter) ([]domain.Coverage, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.Coverage
	for _, coverage := range r.items {
		if coverage.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && coverage.Status != filter.Status {
			continue
		}
		items = append(items, coverage)
	}
	return items, int64(len(items)), nil
}

func (r *memCoverages) UpdateStatus(_ context.Context, id string, from, to domain.CoverageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	coverage, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if coverage.Status != from {
		return domain.ErrIllegalTransition
	}
	coverage.Status = to
	r.items[id] = coverage
	return nil
}

func (r *memCoverages) RecordRefund(_ context.Context, id string, amount int64, txRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	coverage, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	coverage.RefundAmount = amount
	coverage.RefundTxRef = txRef
	r.items[id] = coverage
	return nil
}

func (r *memCoverages) MarkExpired(_ context.Context, now time.Time) ([]domain.Coverage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []domain.Coverage
	for id, coverage := range r.items {
		if coverage.Status == domain.CoverageActive && !now.Before(coverage.EndAt) {
			coverage.Status = domain.CoverageExpired
			r.items[id] = coverage
			expired = append(expired, coverage)
		}
	}
	return expired, nil
}

func (r *memCoverages) ListExpiring(_ context.Context, from, until time.Time) ([]domain.Coverage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expiring []domain.Coverage
	for _, coverage := range r.items {
		if coverage.Status != domain.CoverageActive {
			continue
		}
		if coverage.EndAt.After(from) && !coverage.EndAt.After(until) {
			expiring = append(expiring, coverage)
		}
	}
	return expiring, nil
}

type memClaims struct {
	mu    sync.Mutex
	items map[string]domain.Claim
}

func newMemClaims(claims ...domain.Claim) *memClaims {
	repo := &memClaims{items: make(map[string]domain.Claim)}
	for _, claim := range claims {
		repo.items[claim.ID] = claim
	}
	return repo
}

func (r *memClaims) Create(_ context.Context, claim domain.Claim) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[claim.ID] = claim
	return claim, nil
}

func (r *memClaims) Get(_ context.Context, id string) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.items[id]
	if !ok {
		return domain.Claim{}, domain.ErrNotFound
	}
	return claim, nil
}

func (r *memClaims) GetOwned(ctx context.Context, id, ownerID string) (domain.Claim, error) {
	claim, err := r.Get(ctx, id)
	if err != nil {
		return domain.Claim{}, err
	}
	if claim.OwnerID != ownerID {
		return domain.Claim{}, domain.ErrNotFound
	}
	return claim, nil
}

func (r *memClaims) ListByCoverage(_ context.Context, coverageID string) ([]domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.Claim
	for _, claim := range r.items {
		if claim.CoverageID == coverageID {
			items = append(items, claim)
		}
	}
	return items, nil
}

func (r *memClaims) MarkUnderReview(_ context.Context, id, oracleRequestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if claim.Status != domain.ClaimPending {
		return domain.ErrClaimInReview
	}
	claim.Status = domain.ClaimUnderReview
	claim.OracleRequestID = oracleRequestID
	r.items[id] = claim
	return nil
}

func (r *memClaims) Decide(_ context.Context, id string, to domain.ClaimStatus, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if claim.Status != domain.ClaimUnderReview {
		return domain.ErrIllegalTransition
	}
	if to != domain.ClaimApproved && to != domain.ClaimRejected {
		return domain.ErrIllegalTransition
	}
	claim.Status = to
	claim.RejectionReason = reason
	claim.ProcessedAt = &at
	r.items[id] = claim
	return nil
}

// memPayoutStore serializes reservation, commit and release against the two
// in-memory repos under one lock, mirroring the transactional store.
type memPayoutStore struct {
	mu        sync.Mutex
	coverages *memCoverages
	claims    *memClaims
}

func newMemPayoutStore(coverages *memCoverages, claims *memClaims) *memPayoutStore {
	return &memPayoutStore{coverages: coverages, claims: claims}
}

func (s *memPayoutStore) Reserve(_ context.Context, params ReservePayoutParams) (PayoutReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coverages.mu.Lock()
	coverage, ok := s.coverages.items[params.CoverageID]
	s.coverages.mu.Unlock()
	if !ok {
		return PayoutReservation{}, domain.ErrNotFound
	}

	s.claims.mu.Lock()
	claim, ok := s.claims.items[params.ClaimID]
	s.claims.mu.Unlock()
	if !ok {
		return PayoutReservation{}, domain.ErrNotFound
	}
	if claim.Status != domain.ClaimApproved {
		return PayoutReservation{}, domain.ErrIllegalTransition
	}

	remaining := coverage.Remaining()
	if params.Amount <= 0 || remaining <= 0 {
		return PayoutReservation{}, domain.ErrOverClaim
	}
	reserved := params.Amount
	if reserved > remaining {
		reserved = remaining
	}

	coverage.Consumed += reserved
	exhausted := coverage.Consumed >= coverage.Amount
	if exhausted {
		coverage.Status = domain.CoverageExhausted
	}
	s.coverages.mu.Lock()
	s.coverages.items[params.CoverageID] = coverage
	s.coverages.mu.Unlock()

	return PayoutReservation{Amount: reserved, Consumed: coverage.Consumed, Exhausted: exhausted}, nil
}

func (s *memPayoutStore) Commit(_ context.Context, params CommitPayoutParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claims.mu.Lock()
	defer s.claims.mu.Unlock()
	claim, ok := s.claims.items[params.ClaimID]
	if !ok {
		return domain.ErrNotFound
	}
	if claim.Status != domain.ClaimApproved {
		return domain.ErrIllegalTransition
	}
	claim.Status = domain.ClaimPaid
	claim.PayoutTxRef = params.TxRef
	claim.ProcessedAt = &params.At
	s.claims.items[params.ClaimID] = claim
	return nil
}

func (s *memPayoutStore) Release(_ context.Context, coverageID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coverages.mu.Lock()
	defer s.coverages.mu.Unlock()
	coverage, ok := s.coverages.items[coverageID]
	if !ok {
		return domain.ErrNotFound
	}
	coverage.Consumed -= amount
	if coverage.Consumed < 0 {
		coverage.Consumed = 0
	}
	if coverage.Status == domain.CoverageExhausted && coverage.Consumed < coverage.Amount {
		coverage.Status = domain.CoverageActive
	}
	s.coverages.items[coverageID] = coverage
	return nil
}

type fakeChain struct {
	mu         sync.Mutex
	submitErr  error
	payoutErr  error
	refundErr  error
	balance    int64
	balanceErr error
	state      string
	pool       PoolData
	submits    []string
	payouts    []PayoutTransfer
	refunds    []RefundTransfer
	nextPayout int
}

func (c *fakeChain) SubmitTransaction(_ context.Context, op string, _ map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.submits = append(c.submits, op)
	return fmt.Sprintf("tx-%s-%d", op, len(c.submits)), nil
}

func (c *fakeChain) GetBalance(context.Context, string, string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance, c.balanceErr
}

func (c *fakeChain) GetCoverageState(context.Context, string, string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == "" {
		return "cancelled", nil
	}
	return c.state, nil
}

func (c *fakeChain) ProcessPayout(_ context.Context, transfer PayoutTransfer) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payoutErr != nil {
		return "", c.payoutErr
	}
	c.payouts = append(c.payouts, transfer)
	c.nextPayout++
	return fmt.Sprintf("tx-payout-%d", c.nextPayout), nil
}

func (c *fakeChain) ProcessRefund(_ context.Context, transfer RefundTransfer) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refundErr != nil {
		return "", c.refundErr
	}
	c.refunds = append(c.refunds, transfer)
	return "tx-refund-1", nil
}

func (c *fakeChain) GetPoolData(context.Context) (PoolData, error) {
	return c.pool, nil
}

type fakeOracle struct {
	requestErr error
	requestID  string
	status     OracleStatus
	statusErr  error
	requests   int
}

func (o *fakeOracle) RequestVerification(_ context.Context, _, _ string, _ []domain.TriggerCondition, _ bool) (string, error) {
	if o.requestErr != nil {
		return "", o.requestErr
	}
	o.requests++
	if o.requestID == "" {
		return "req-1", nil
	}
	return o.requestID, nil
}

func (o *fakeOracle) PollStatus(context.Context, string) (OracleStatus, error) {
	if o.statusErr != nil {
		return OracleStatus{}, o.statusErr
	}
	return o.status, nil
}

type fakeEvidence struct {
	uploadErr error
	uploads   [][]byte
}

func (e *fakeEvidence) Upload(_ context.Context, blob []byte) (string, error) {
	if e.uploadErr != nil {
		return "", e.uploadErr
	}
	e.uploads = append(e.uploads, blob)
	return fmt.Sprintf("evidence-ref-%d", len(e.uploads)), nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.items[key]
	return value, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *fakeEvents) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeEvents) byType(eventType domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, event := range p.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fakeStarter struct {
	err     error
	started []string
}

func (s *fakeStarter) Start(_ context.Context, claim domain.Claim, _ []domain.TriggerCondition) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, claim.ID)
	return nil
}

type staticMarket struct {
	snapshot domain.MarketSnapshot
	err      error
	fetches  int
}

func (m *staticMarket) Fetch(context.Context) (domain.MarketSnapshot, error) {
	if m.err != nil {
		return domain.MarketSnapshot{}, m.err
	}
	m.fetches++
	return m.snapshot, nil
}

type memArchive struct {
	mu     sync.Mutex
	rounds []domain.VerificationRequest
}

func (m *memArchive) Archive(ctx context.Context, request domain.VerificationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, request)
	return nil
}

var errBoom = errors.New("boom")

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func activeCoverage(id, owner string, amount int64, now time.Time) domain.Coverage {
	return domain.Coverage{
		ID:           id,
		OwnerID:      owner,
		Amount:       amount,
		Premium:      amount / 100,
		CoverageType: domain.CoverageClinicalTrialFailure,
		TriggerConditions: []domain.TriggerCondition{
			{Type: domain.DataClinicalTrialResult, Outcome: "failure"},
		},
		RiskScore: 40,
		Status:    domain.CoverageActive,
		StartAt:   now,
		EndAt:     now.Add(365 * 24 * time.Hour),
		Chain:     "solana",
		TxRef:     "tx-create-1",
		CreatedAt: now,
	}
}
