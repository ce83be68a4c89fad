package domain

import (
	"strings"
	"time"
)

type CoverageType string

const (
	CoverageClinicalTrialFailure CoverageType = "CLINICAL_TRIAL_FAILURE"
	CoverageRegulatoryRejection  CoverageType = "REGULATORY_REJECTION"
	CoverageIPInvalidation       CoverageType = "IP_INVALIDATION"
)

func ParseCoverageType(value string) (CoverageType, error) {
	switch CoverageType(strings.ToUpper(strings.TrimSpace(value))) {
	case CoverageClinicalTrialFailure:
		return CoverageClinicalTrialFailure, nil
	case CoverageRegulatoryRejection:
		return CoverageRegulatoryRejection, nil
	case CoverageIPInvalidation:
		return CoverageIPInvalidation, nil
	}
	return "", ErrValidation
}

type CoverageStatus string

const (
	CoverageActive    CoverageStatus = "ACTIVE"
	CoverageCancelled CoverageStatus = "CANCELLED"
	CoverageExpired   CoverageStatus = "EXPIRED"
	CoverageExhausted CoverageStatus = "EXHAUSTED"
)

type UserTier string

const (
	TierPremium  UserTier = "PREMIUM"
	TierGold     UserTier = "GOLD"
	TierSilver   UserTier = "SILVER"
	TierStandard UserTier = "STANDARD"
)

// TriggerCondition is one clause of a coverage's trigger-condition set.
// A data point of matching Type whose value equals Outcome satisfies it.
type TriggerCondition struct {
	Type    DataPointType `json:"type"`
	Outcome string        `json:"outcome"`
}

type Coverage struct {
	ID                string
	OwnerID           string
	Amount            int64
	Premium           int64
	CoverageType      CoverageType
	TriggerConditions []TriggerCondition
	RiskScore         int
	Status            CoverageStatus
	Consumed          int64
	StartAt           time.Time
	EndAt             time.Time
	PaidWithDiscount  bool
	Chain             string
	TxRef             string
	RefundAmount      int64
	RefundTxRef       string
	CreatedAt         time.Time
}

// RefundPending reports whether a cancelled coverage has a recorded refund
// whose transfer has not yet gone through.
func (c Coverage) RefundPending() bool {
	return c.Status == CoverageCancelled && c.RefundAmount > 0 && c.RefundTxRef == ""
}

type NewCoverageParams struct {
	OwnerID           string
	Amount            int64
	Premium           int64
	CoverageType      CoverageType
	TriggerConditions []TriggerCondition
	RiskScore         int
	PeriodSeconds     int64
	PaidWithDiscount  bool
	Chain             string
	TxRef             string
	Now               time.Time
}

// NewCoverage validates params and returns an ACTIVE coverage starting now.
func NewCoverage(p NewCoverageParams) (Coverage, error) {
	if p.OwnerID == "" || p.Amount <= 0 || p.Premium <= 0 {
		return Coverage{}, ErrValidation
	}
	if p.RiskScore < 0 || p.RiskScore > 100 {
		return Coverage{}, ErrValidation
	}
	if p.PeriodSeconds <= 0 {
		return Coverage{}, ErrValidation
	}
	if len(p.TriggerConditions) == 0 {
		return Coverage{}, ErrValidation
	}
	if _, err := ParseCoverageType(string(p.CoverageType)); err != nil {
		return Coverage{}, err
	}
	start := p.Now.UTC()
	return Coverage{
		OwnerID:           p.OwnerID,
		Amount:            p.Amount,
		Premium:           p.Premium,
		CoverageType:      p.CoverageType,
		TriggerConditions: p.TriggerConditions,
		RiskScore:         p.RiskScore,
		Status:            CoverageActive,
		Consumed:          0,
		StartAt:           start,
		EndAt:             start.Add(time.Duration(p.PeriodSeconds) * time.Second),
		PaidWithDiscount:  p.PaidWithDiscount,
		Chain:             p.Chain,
		TxRef:             p.TxRef,
		CreatedAt:         start,
	}, nil
}

// Remaining is the capacity still claimable against the coverage.
func (c Coverage) Remaining() int64 {
	remaining := c.Amount - c.Consumed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c Coverage) Expired(now time.Time) bool {
	return !now.Before(c.EndAt)
}

// CanTransition reports whether a coverage status change is legal.
// ACTIVE is the only non-terminal state.
func (c Coverage) CanTransition(to CoverageStatus) bool {
	if c.Status != CoverageActive {
		return false
	}
	switch to {
	case CoverageCancelled, CoverageExpired, CoverageExhausted:
		return true
	}
	return false
}

func (c *Coverage) Transition(to CoverageStatus) error {
	if !c.CanTransition(to) {
		return ErrIllegalTransition
	}
	c.Status = to
	return nil
}
