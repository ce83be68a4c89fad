package usecase

import (
	"context"
	"log"
	"time"

	"bioshield/internal/domain"

	"github.com/google/uuid"
)

// ClaimService owns claim submission and reads. Adjudication itself runs
// asynchronously; Submit only creates the PENDING claim and hands it off.
type ClaimService struct {
	Claims       ClaimRepository
	Coverages    CoverageRepository
	Evidence     EvidenceStore
	Oracle       OracleClient
	Adjudication AdjudicationStarter
	Events       EventPublisher
	Clock        Clock
}

type SubmitClaimInput struct {
	CoverageID  string
	OwnerID     string
	Amount      int64
	ClaimType   domain.ClaimType
	EvidenceRef string
	Evidence    []byte
	Urgent      bool
}

// Submit guards against over-claiming at submission time: the claim amount
// must fit within the coverage's remaining capacity and the coverage must
// still be ACTIVE.
func (s *ClaimService) Submit(ctx context.Context, in SubmitClaimInput) (domain.Claim, error) {
	coverage, err := s.Coverages.GetOwned(ctx, in.CoverageID, in.OwnerID)
	if err != nil {
		return domain.Claim{}, err
	}
	if coverage.Status != domain.CoverageActive {
		return domain.Claim{}, domain.ErrInactiveCoverage
	}
	if in.Amount <= 0 {
		return domain.Claim{}, domain.ErrValidation
	}
	if in.Amount > coverage.Remaining() {
		return domain.Claim{}, domain.ErrOverClaim
	}

	evidenceRef := in.EvidenceRef
	if evidenceRef == "" {
		if len(in.Evidence) == 0 {
			return domain.Claim{}, domain.ErrValidation
		}
		ref, err := s.Evidence.Upload(ctx, in.Evidence)
		if err != nil {
			return domain.Claim{}, domain.ErrValidation
		}
		evidenceRef = ref
	}

	claim, err := domain.NewClaim(domain.NewClaimParams{
		CoverageID:  coverage.ID,
		OwnerID:     in.OwnerID,
		Amount:      in.Amount,
		ClaimType:   in.ClaimType,
		EvidenceRef: evidenceRef,
		Urgent:      in.Urgent,
		Now:         s.now(),
	})
	if err != nil {
		return domain.Claim{}, err
	}
	claim.ID = uuid.NewString()

	created, err := s.Claims.Create(ctx, claim)
	if err != nil {
		return domain.Claim{}, err
	}

	s.publish(ctx, domain.Event{
		Type:       domain.EventClaimSubmitted,
		ClaimID:    created.ID,
		CoverageID: coverage.ID,
		OwnerID:    in.OwnerID,
		Payload: map[string]any{
			"amount": created.Amount,
			"urgent": created.Urgent,
		},
		OccurredAt: s.now(),
	})

	if s.Adjudication != nil {
		if err := s.Adjudication.Start(ctx, created, coverage.TriggerConditions); err != nil {
			log.Printf("adjudication start failed for claim %s: %v", created.ID, err)
		}
	}
	return created, nil
}

func (s *ClaimService) Get(ctx context.Context, claimID, ownerID string) (domain.Claim, error) {
	return s.Claims.GetOwned(ctx, claimID, ownerID)
}

func (s *ClaimService) ListByCoverage(ctx context.Context, coverageID, ownerID string) ([]domain.Claim, error) {
	if _, err := s.Coverages.GetOwned(ctx, coverageID, ownerID); err != nil {
		return nil, err
	}
	return s.Claims.ListByCoverage(ctx, coverageID)
}

type TimelineEntry struct {
	Event       string    `json:"event"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

func (s *ClaimService) Timeline(ctx context.Context, claimID, ownerID string) ([]TimelineEntry, error) {
	claim, err := s.Claims.GetOwned(ctx, claimID, ownerID)
	if err != nil {
		return nil, err
	}
	timeline := []TimelineEntry{{
		Event:       "SUBMITTED",
		Timestamp:   claim.SubmittedAt,
		Description: "claim submitted and evidence recorded",
	}}
	if claim.OracleRequestID != "" {
		timeline = append(timeline, TimelineEntry{
			Event:       "ORACLE_VERIFICATION_STARTED",
			Timestamp:   claim.SubmittedAt,
			Description: "oracle verification initiated",
		})
	}
	if claim.ProcessedAt != nil {
		entry := TimelineEntry{
			Event:       string(claim.Status),
			Timestamp:   *claim.ProcessedAt,
			Description: "claim " + string(claim.Status),
		}
		if claim.RejectionReason != "" {
			entry.Description = claim.RejectionReason
		}
		timeline = append(timeline, entry)
	}
	return timeline, nil
}

type OracleStatusView struct {
	Status     string             `json:"status"`
	DataPoints []domain.DataPoint `json:"data_points,omitempty"`
	Consensus  bool               `json:"consensus,omitempty"`
}

func (s *ClaimService) OracleStatus(ctx context.Context, claimID, ownerID string) (OracleStatusView, error) {
	claim, err := s.Claims.GetOwned(ctx, claimID, ownerID)
	if err != nil {
		return OracleStatusView{}, err
	}
	if claim.OracleRequestID == "" {
		return OracleStatusView{Status: "not_requested"}, nil
	}
	status, err := s.Oracle.PollStatus(ctx, claim.OracleRequestID)
	if err != nil {
		return OracleStatusView{}, err
	}
	view := OracleStatusView{Status: string(domain.VerificationComplete)}
	if status.Pending {
		view.Status = string(domain.VerificationPending)
	}
	view.DataPoints = status.DataPoints
	view.Consensus = status.Consensus
	return view, nil
}

func (s *ClaimService) publish(ctx context.Context, event domain.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		log.Printf("publish %s failed: %v", event.Type, err)
	}
}

func (s *ClaimService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
