package domain

import "time"

type DataPointType string

const (
	DataClinicalTrialResult DataPointType = "clinical_trial_result"
	DataRegulatoryDecision  DataPointType = "regulatory_decision"
	DataIPRuling            DataPointType = "ip_ruling"
)

// DataPoint is one verification observation from an independent source.
type DataPoint struct {
	Type      DataPointType `json:"type"`
	Value     string        `json:"value"`
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
}

// VerificationRequest links a claim to one oracle round. It is consumed
// once a decision is reached and not mutated afterwards.
type VerificationRequest struct {
	ID         string
	ClaimID    string
	DataPoints []DataPoint
	Signatures [][]byte
	Consensus  bool
	CreatedAt  time.Time
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationComplete VerificationStatus = "complete"
)

// MinConsensusSources is the quorum: at least two independent sources must
// agree, each signed, before a claim can be approved.
const MinConsensusSources = 2

type AdjudicationOutcome string

const (
	OutcomeApprove AdjudicationOutcome = "approve"
	OutcomeReject  AdjudicationOutcome = "reject"
)

type AdjudicationDecision struct {
	Outcome    AdjudicationOutcome
	Reason     string
	DataPoints []DataPoint
}
