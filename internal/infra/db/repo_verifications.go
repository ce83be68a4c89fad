package db

import (
	"context"
	"encoding/json"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VerificationRepository archives completed oracle rounds. The round is
// write-once: it exists for audit, never for further mutation.
type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(conn *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: conn}
}

func (r *VerificationRepository) Archive(ctx context.Context, request domain.VerificationRequest) error {
	if r.db == nil {
		return errDBUnavailable
	}
	points, err := json.Marshal(request.DataPoints)
	if err != nil {
		return err
	}
	signatures, err := json.Marshal(request.Signatures)
	if err != nil {
		return err
	}
	model := VerificationRequestModel{
		ID:         request.ID,
		ClaimID:    request.ClaimID,
		DataPoints: points,
		Signatures: signatures,
		Consensus:  request.Consensus,
		CreatedAt:  request.CreatedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}

var _ usecase.VerificationArchive = (*VerificationRepository)(nil)
