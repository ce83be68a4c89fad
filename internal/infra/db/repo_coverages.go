package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	"gorm.io/gorm"
)

type CoverageRepository struct {
	db *gorm.DB
}

func NewCoverageRepository(conn *gorm.DB) *CoverageRepository {
	return &CoverageRepository{db: conn}
}

func (r *CoverageRepository) Create(ctx context.Context, coverage domain.Coverage) (domain.Coverage, error) {
	if r.db == nil {
		return domain.Coverage{}, errDBUnavailable
	}
	model, err := coverageToModel(coverage)
	if err != nil {
		return domain.Coverage{}, err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Coverage{}, err
	}
	return coverage, nil
}

func (r *CoverageRepository) Get(ctx context.Context, id string) (domain.Coverage, error) {
	if r.db == nil {
		return domain.Coverage{}, errDBUnavailable
	}
	var model CoverageModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Coverage{}, domain.ErrNotFound
		}
		return domain.Coverage{}, err
	}
	return coverageFromModel(model)
}

func (r *CoverageRepository) GetOwned(ctx context.Context, id, ownerID string) (domain.Coverage, error) {
	if r.db == nil {
		return domain.Coverage{}, errDBUnavailable
	}
	var model CoverageModel
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Coverage{}, domain.ErrNotFound
		}
		return domain.Coverage{}, err
	}
	return coverageFromModel(model)
}

func (r *CoverageRepository) List(ctx context.Context, filter usecase.CoverageListFilter) ([]domain.Coverage, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Model(&CoverageModel{}).Where("owner_id = ?", filter.OwnerID)
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.Limit
	var models []CoverageModel
	err := query.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	coverages := make([]domain.Coverage, 0, len(models))
	for _, model := range models {
		coverage, err := coverageFromModel(model)
		if err != nil {
			return nil, 0, err
		}
		coverages = append(coverages, coverage)
	}
	return coverages, total, nil
}

func (r *CoverageRepository) UpdateStatus(ctx context.Context, id string, from, to domain.CoverageStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&CoverageModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrIllegalTransition
	}
	return nil
}

func (r *CoverageRepository) RecordRefund(ctx context.Context, id string, amount int64, txRef string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&CoverageModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"refund_amount": amount,
			"refund_tx_ref": txRef,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CoverageRepository) MarkExpired(ctx context.Context, now time.Time) ([]domain.Coverage, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var expired []domain.Coverage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []CoverageModel
		if err := tx.Where("status = ? AND end_at <= ?", string(domain.CoverageActive), now).Find(&models).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		ids := make([]string, 0, len(models))
		for _, model := range models {
			ids = append(ids, model.ID)
		}
		if err := tx.Model(&CoverageModel{}).
			Where("id IN ? AND status = ?", ids, string(domain.CoverageActive)).
			Update("status", string(domain.CoverageExpired)).Error; err != nil {
			return err
		}
		for _, model := range models {
			coverage, err := coverageFromModel(model)
			if err != nil {
				return err
			}
			coverage.Status = domain.CoverageExpired
			expired = append(expired, coverage)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func (r *CoverageRepository) ListExpiring(ctx context.Context, from, until time.Time) ([]domain.Coverage, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CoverageModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_at > ? AND end_at <= ?", string(domain.CoverageActive), from, until).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	coverages := make([]domain.Coverage, 0, len(models))
	for _, model := range models {
		coverage, err := coverageFromModel(model)
		if err != nil {
			return nil, err
		}
		coverages = append(coverages, coverage)
	}
	return coverages, nil
}

func coverageToModel(coverage domain.Coverage) (CoverageModel, error) {
	conditions, err := json.Marshal(coverage.TriggerConditions)
	if err != nil {
		return CoverageModel{}, err
	}
	return CoverageModel{
		ID:                coverage.ID,
		OwnerID:           coverage.OwnerID,
		Amount:            coverage.Amount,
		Premium:           coverage.Premium,
		CoverageType:      string(coverage.CoverageType),
		TriggerConditions: conditions,
		RiskScore:         coverage.RiskScore,
		Status:            string(coverage.Status),
		Consumed:          coverage.Consumed,
		StartAt:           coverage.StartAt,
		EndAt:             coverage.EndAt,
		PaidWithDiscount:  coverage.PaidWithDiscount,
		Chain:             coverage.Chain,
		TxRef:             coverage.TxRef,
		RefundAmount:      coverage.RefundAmount,
		RefundTxRef:       coverage.RefundTxRef,
		CreatedAt:         coverage.CreatedAt,
	}, nil
}

func coverageFromModel(model CoverageModel) (domain.Coverage, error) {
	var conditions []domain.TriggerCondition
	if len(model.TriggerConditions) > 0 {
		if err := json.Unmarshal(model.TriggerConditions, &conditions); err != nil {
			return domain.Coverage{}, err
		}
	}
	return domain.Coverage{
		ID:                model.ID,
		OwnerID:           model.OwnerID,
		Amount:            model.Amount,
		Premium:           model.Premium,
		CoverageType:      domain.CoverageType(model.CoverageType),
		TriggerConditions: conditions,
		RiskScore:         model.RiskScore,
		Status:            domain.CoverageStatus(model.Status),
		Consumed:          model.Consumed,
		StartAt:           model.StartAt,
		EndAt:             model.EndAt,
		PaidWithDiscount:  model.PaidWithDiscount,
		Chain:             model.Chain,
		TxRef:             model.TxRef,
		RefundAmount:      model.RefundAmount,
		RefundTxRef:       model.RefundTxRef,
		CreatedAt:         model.CreatedAt,
	}, nil
}

var _ usecase.CoverageRepository = (*CoverageRepository)(nil)
