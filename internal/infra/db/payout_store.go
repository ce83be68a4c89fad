package db

import (
	"context"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutStore serializes claim settlement against the coverage row. The
// coverage is locked FOR UPDATE while capacity is reserved, so concurrent
// approvals against the same coverage resolve before any funds move.
type PayoutStore struct {
	db *gorm.DB
}

func NewPayoutStore(conn *gorm.DB) *PayoutStore {
	return &PayoutStore{db: conn}
}

func (s *PayoutStore) Reserve(ctx context.Context, params usecase.ReservePayoutParams) (usecase.PayoutReservation, error) {
	if s.db == nil {
		return usecase.PayoutReservation{}, errDBUnavailable
	}
	var reservation usecase.PayoutReservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var coverage CoverageModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", params.CoverageID).
			First(&coverage).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.ErrNotFound
			}
			return err
		}

		var claim ClaimModel
		if err := tx.Where("id = ?", params.ClaimID).First(&claim).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.ErrNotFound
			}
			return err
		}
		if claim.Status != string(domain.ClaimApproved) {
			return domain.ErrIllegalTransition
		}

		remaining := coverage.Amount - coverage.Consumed
		if params.Amount <= 0 || remaining <= 0 {
			return domain.ErrOverClaim
		}
		reserved := params.Amount
		if reserved > remaining {
			reserved = remaining
		}

		consumed := coverage.Consumed + reserved
		updates := map[string]any{"consumed": consumed}
		exhausted := consumed == coverage.Amount
		if exhausted {
			updates["status"] = string(domain.CoverageExhausted)
		}
		if err := tx.Model(&CoverageModel{}).
			Where("id = ?", params.CoverageID).
			Updates(updates).Error; err != nil {
			return err
		}

		reservation = usecase.PayoutReservation{Amount: reserved, Consumed: consumed, Exhausted: exhausted}
		return nil
	})
	if err != nil {
		return usecase.PayoutReservation{}, err
	}
	return reservation, nil
}

func (s *PayoutStore) Commit(ctx context.Context, params usecase.CommitPayoutParams) error {
	if s.db == nil {
		return errDBUnavailable
	}
	result := s.db.WithContext(ctx).Model(&ClaimModel{}).
		Where("id = ? AND status = ?", params.ClaimID, string(domain.ClaimApproved)).
		Updates(map[string]any{
			"status":        string(domain.ClaimPaid),
			"payout_tx_ref": params.TxRef,
			"processed_at":  params.At,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrIllegalTransition
	}
	return nil
}

// Release hands reserved capacity back after a failed transfer and reopens
// a coverage that was exhausted by the reservation alone.
func (s *PayoutStore) Release(ctx context.Context, coverageID string, amount int64) error {
	if s.db == nil {
		return errDBUnavailable
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var coverage CoverageModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", coverageID).
			First(&coverage).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.ErrNotFound
			}
			return err
		}
		consumed := coverage.Consumed - amount
		if consumed < 0 {
			consumed = 0
		}
		updates := map[string]any{"consumed": consumed}
		if coverage.Status == string(domain.CoverageExhausted) && consumed < coverage.Amount {
			updates["status"] = string(domain.CoverageActive)
		}
		return tx.Model(&CoverageModel{}).
			Where("id = ?", coverageID).
			Updates(updates).Error
	})
}

var _ usecase.PayoutStore = (*PayoutStore)(nil)
