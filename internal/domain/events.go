package domain

import "time"

type EventType string

const (
	EventCoverageCreated   EventType = "coverage.created"
	EventCoverageExpiring  EventType = "coverage.expiring"
	EventCoverageCancelled EventType = "coverage.cancelled"
	EventCoverageRefunded  EventType = "coverage.refunded"
	EventClaimSubmitted    EventType = "claim.submitted"
	EventClaimApproved     EventType = "claim.approved"
	EventClaimRejected     EventType = "claim.rejected"
)

// Event is an outbound notification. Emission is fire-and-forget; no
// subscriber response is ever awaited.
type Event struct {
	Type       EventType      `json:"type"`
	CoverageID string         `json:"coverage_id,omitempty"`
	ClaimID    string         `json:"claim_id,omitempty"`
	OwnerID    string         `json:"owner_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
