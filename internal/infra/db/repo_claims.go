package db

import (
	"context"
	"errors"
	"time"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	"gorm.io/gorm"
)

type ClaimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(conn *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: conn}
}

func (r *ClaimRepository) Create(ctx context.Context, claim domain.Claim) (domain.Claim, error) {
	if r.db == nil {
		return domain.Claim{}, errDBUnavailable
	}
	model := claimToModel(claim)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Claim{}, err
	}
	return claim, nil
}

func (r *ClaimRepository) Get(ctx context.Context, id string) (domain.Claim, error) {
	if r.db == nil {
		return domain.Claim{}, errDBUnavailable
	}
	var model ClaimModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Claim{}, domain.ErrNotFound
		}
		return domain.Claim{}, err
	}
	return claimFromModel(model), nil
}

func (r *ClaimRepository) GetOwned(ctx context.Context, id, ownerID string) (domain.Claim, error) {
	if r.db == nil {
		return domain.Claim{}, errDBUnavailable
	}
	var model ClaimModel
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Claim{}, domain.ErrNotFound
		}
		return domain.Claim{}, err
	}
	return claimFromModel(model), nil
}

func (r *ClaimRepository) ListByCoverage(ctx context.Context, coverageID string) ([]domain.Claim, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ClaimModel
	err := r.db.WithContext(ctx).
		Where("coverage_id = ?", coverageID).
		Order("submitted_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	claims := make([]domain.Claim, 0, len(models))
	for _, model := range models {
		claims = append(claims, claimFromModel(model))
	}
	return claims, nil
}

// MarkUnderReview is the dispatch idempotency gate: the conditional update
// succeeds only while the claim is still PENDING.
func (r *ClaimRepository) MarkUnderReview(ctx context.Context, id, oracleRequestID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&ClaimModel{}).
		Where("id = ? AND status = ?", id, string(domain.ClaimPending)).
		Updates(map[string]any{
			"status":            string(domain.ClaimUnderReview),
			"oracle_request_id": oracleRequestID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrClaimInReview
	}
	return nil
}

func (r *ClaimRepository) Decide(ctx context.Context, id string, to domain.ClaimStatus, reason string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if to != domain.ClaimApproved && to != domain.ClaimRejected {
		return domain.ErrIllegalTransition
	}
	updates := map[string]any{
		"status":       string(to),
		"processed_at": at,
	}
	if reason != "" {
		updates["rejection_reason"] = reason
	}
	result := r.db.WithContext(ctx).Model(&ClaimModel{}).
		Where("id = ? AND status = ?", id, string(domain.ClaimUnderReview)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrIllegalTransition
	}
	return nil
}

func claimToModel(claim domain.Claim) ClaimModel {
	return ClaimModel{
		ID:              claim.ID,
		CoverageID:      claim.CoverageID,
		OwnerID:         claim.OwnerID,
		Amount:          claim.Amount,
		ClaimType:       string(claim.ClaimType),
		EvidenceRef:     claim.EvidenceRef,
		Status:          string(claim.Status),
		SubmittedAt:     claim.SubmittedAt,
		ProcessedAt:     claim.ProcessedAt,
		RejectionReason: claim.RejectionReason,
		OracleRequestID: claim.OracleRequestID,
		PayoutTxRef:     claim.PayoutTxRef,
		Urgent:          claim.Urgent,
	}
}

func claimFromModel(model ClaimModel) domain.Claim {
	return domain.Claim{
		ID:              model.ID,
		CoverageID:      model.CoverageID,
		OwnerID:         model.OwnerID,
		Amount:          model.Amount,
		ClaimType:       domain.ClaimType(model.ClaimType),
		EvidenceRef:     model.EvidenceRef,
		Status:          domain.ClaimStatus(model.Status),
		SubmittedAt:     model.SubmittedAt,
		ProcessedAt:     model.ProcessedAt,
		RejectionReason: model.RejectionReason,
		OracleRequestID: model.OracleRequestID,
		PayoutTxRef:     model.PayoutTxRef,
		Urgent:          model.Urgent,
	}
}

var _ usecase.ClaimRepository = (*ClaimRepository)(nil)
