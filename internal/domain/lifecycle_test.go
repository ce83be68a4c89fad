package domain

import (
	"testing"
	"time"
)

func TestCoverageTransitions(t *testing.T) {
	statuses := []CoverageStatus{CoverageActive, CoverageCancelled, CoverageExpired, CoverageExhausted}
	for _, from := range statuses {
		for _, to := range statuses {
			coverage := Coverage{Status: from}
			want := from == CoverageActive && to != CoverageActive
			if got := coverage.CanTransition(to); got != want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	coverage := Coverage{Status: CoverageActive}
	if err := coverage.Transition(CoverageCancelled); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if coverage.Status != CoverageCancelled {
		t.Fatalf("status %s", coverage.Status)
	}
	if err := coverage.Transition(CoverageExpired); err != ErrIllegalTransition {
		t.Fatalf("terminal transition err = %v, want ErrIllegalTransition", err)
	}
}

func TestClaimTransitions(t *testing.T) {
	allowed := map[ClaimStatus][]ClaimStatus{
		ClaimPending:     {ClaimUnderReview},
		ClaimUnderReview: {ClaimApproved, ClaimRejected},
		ClaimApproved:    {ClaimPaid},
		ClaimRejected:    {},
		ClaimPaid:        {},
	}
	statuses := []ClaimStatus{ClaimPending, ClaimUnderReview, ClaimApproved, ClaimRejected, ClaimPaid}
	for from, tos := range allowed {
		permitted := make(map[ClaimStatus]bool, len(tos))
		for _, to := range tos {
			permitted[to] = true
		}
		for _, to := range statuses {
			claim := Claim{Status: from}
			if got := claim.CanTransition(to); got != permitted[to] {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", from, to, got, permitted[to])
			}
		}
	}
}

func TestCoverageRemaining(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		consumed int64
		want     int64
	}{
		{"untouched", 1_000, 0, 1_000},
		{"partially consumed", 1_000, 400, 600},
		{"exhausted", 1_000, 1_000, 0},
		{"over consumed clamps", 1_000, 1_200, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coverage := Coverage{Amount: tt.amount, Consumed: tt.consumed}
			if got := coverage.Remaining(); got != tt.want {
				t.Fatalf("Remaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCoverageExpired(t *testing.T) {
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	coverage := Coverage{EndAt: end}
	if coverage.Expired(end.Add(-time.Second)) {
		t.Fatal("expired before end")
	}
	if !coverage.Expired(end) {
		t.Fatal("not expired at end")
	}
	if !coverage.Expired(end.Add(time.Second)) {
		t.Fatal("not expired after end")
	}
}

func TestNewCoverageValidation(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	valid := NewCoverageParams{
		OwnerID:      "owner-1",
		Amount:       1_000_000,
		Premium:      30_000,
		CoverageType: CoverageClinicalTrialFailure,
		TriggerConditions: []TriggerCondition{
			{Type: DataClinicalTrialResult, Outcome: "failure"},
		},
		RiskScore:     40,
		PeriodSeconds: 86_400,
		Now:           now,
	}

	coverage, err := NewCoverage(valid)
	if err != nil {
		t.Fatalf("NewCoverage: %v", err)
	}
	if coverage.Status != CoverageActive {
		t.Fatalf("status %s", coverage.Status)
	}
	if !coverage.EndAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("end at %s", coverage.EndAt)
	}

	tests := []struct {
		name   string
		mutate func(*NewCoverageParams)
	}{
		{"no owner", func(p *NewCoverageParams) { p.OwnerID = "" }},
		{"zero amount", func(p *NewCoverageParams) { p.Amount = 0 }},
		{"zero premium", func(p *NewCoverageParams) { p.Premium = 0 }},
		{"risk score over 100", func(p *NewCoverageParams) { p.RiskScore = 101 }},
		{"negative risk score", func(p *NewCoverageParams) { p.RiskScore = -1 }},
		{"zero period", func(p *NewCoverageParams) { p.PeriodSeconds = 0 }},
		{"no trigger conditions", func(p *NewCoverageParams) { p.TriggerConditions = nil }},
		{"unknown coverage type", func(p *NewCoverageParams) { p.CoverageType = "HOUSE_FIRE" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)
			if _, err := NewCoverage(params); err != ErrValidation {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNewClaimValidation(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	valid := NewClaimParams{
		CoverageID:  "cov-1",
		OwnerID:     "owner-1",
		Amount:      100,
		ClaimType:   ClaimPartialCoverage,
		EvidenceRef: "ref-1",
		Now:         now,
	}

	claim, err := NewClaim(valid)
	if err != nil {
		t.Fatalf("NewClaim: %v", err)
	}
	if claim.Status != ClaimPending {
		t.Fatalf("status %s", claim.Status)
	}

	tests := []struct {
		name   string
		mutate func(*NewClaimParams)
	}{
		{"no coverage", func(p *NewClaimParams) { p.CoverageID = "" }},
		{"no owner", func(p *NewClaimParams) { p.OwnerID = "" }},
		{"zero amount", func(p *NewClaimParams) { p.Amount = 0 }},
		{"no evidence", func(p *NewClaimParams) { p.EvidenceRef = "" }},
		{"unknown claim type", func(p *NewClaimParams) { p.ClaimType = "REIMBURSEMENT" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)
			if _, err := NewClaim(params); err != ErrValidation {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestParseCoverageType(t *testing.T) {
	if got, err := ParseCoverageType(" clinical_trial_failure "); err != nil || got != CoverageClinicalTrialFailure {
		t.Fatalf("got %s, %v", got, err)
	}
	if _, err := ParseCoverageType("weather"); err != ErrValidation {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
