package workflows

import "time"

const (
	SignalOracleData = "oracle-data"

	TaskQueue = "bioshield-adjudication"
)

type AdjudicationInput struct {
	ClaimID      string
	Urgent       bool
	PollInterval time.Duration
	Timeout      time.Duration
}

// OracleDataSignal tells the workflow that new oracle data has landed
// and a poll should happen before the next scheduled interval.
type OracleDataSignal struct {
	RequestID string
}

type AdjudicationStatus struct {
	Dispatched      bool
	OracleRequestID string
	Polls           int
	Finished        bool
}

func WorkflowID(claimID string) string {
	return "adjudication:" + claimID
}
