package domain

import (
	"strings"
	"time"
)

type ClaimStatus string

const (
	ClaimPending     ClaimStatus = "PENDING"
	ClaimUnderReview ClaimStatus = "UNDER_REVIEW"
	ClaimApproved    ClaimStatus = "APPROVED"
	ClaimRejected    ClaimStatus = "REJECTED"
	ClaimPaid        ClaimStatus = "PAID"
)

type ClaimType string

const (
	ClaimFullCoverage    ClaimType = "FULL_COVERAGE"
	ClaimPartialCoverage ClaimType = "PARTIAL_COVERAGE"
)

func ParseClaimType(value string) (ClaimType, error) {
	switch ClaimType(strings.ToUpper(strings.TrimSpace(value))) {
	case ClaimFullCoverage:
		return ClaimFullCoverage, nil
	case ClaimPartialCoverage:
		return ClaimPartialCoverage, nil
	}
	return "", ErrValidation
}

// Rejection reasons shared between the adjudicator and the claim record.
const (
	ReasonInsufficientConsensus = "insufficient oracle consensus"
	ReasonVerificationTimeout   = "oracle verification timeout"
	ReasonVerificationFailed    = "failed oracle verification"
)

type Claim struct {
	ID              string
	CoverageID      string
	OwnerID         string
	Amount          int64
	ClaimType       ClaimType
	EvidenceRef     string
	Status          ClaimStatus
	SubmittedAt     time.Time
	ProcessedAt     *time.Time
	RejectionReason string
	OracleRequestID string
	PayoutTxRef     string
	Urgent          bool
}

type NewClaimParams struct {
	CoverageID  string
	OwnerID     string
	Amount      int64
	ClaimType   ClaimType
	EvidenceRef string
	Urgent      bool
	Now         time.Time
}

func NewClaim(p NewClaimParams) (Claim, error) {
	if p.CoverageID == "" || p.OwnerID == "" || p.Amount <= 0 {
		return Claim{}, ErrValidation
	}
	if p.EvidenceRef == "" {
		return Claim{}, ErrValidation
	}
	if _, err := ParseClaimType(string(p.ClaimType)); err != nil {
		return Claim{}, err
	}
	return Claim{
		CoverageID:  p.CoverageID,
		OwnerID:     p.OwnerID,
		Amount:      p.Amount,
		ClaimType:   p.ClaimType,
		EvidenceRef: p.EvidenceRef,
		Status:      ClaimPending,
		SubmittedAt: p.Now.UTC(),
		Urgent:      p.Urgent,
	}, nil
}

// CanTransition encodes the monotonic claim lifecycle:
// PENDING -> UNDER_REVIEW -> {APPROVED -> PAID, REJECTED}.
func (c Claim) CanTransition(to ClaimStatus) bool {
	switch c.Status {
	case ClaimPending:
		return to == ClaimUnderReview
	case ClaimUnderReview:
		return to == ClaimApproved || to == ClaimRejected
	case ClaimApproved:
		return to == ClaimPaid
	}
	return false
}

func (c *Claim) Transition(to ClaimStatus) error {
	if !c.CanTransition(to) {
		return ErrIllegalTransition
	}
	c.Status = to
	return nil
}
