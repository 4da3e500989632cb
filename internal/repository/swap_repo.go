package repository

import (
	"context"
	"errors"
	"time"

	"bookswap/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SwapRepository struct {
	db *gorm.DB
}

func NewSwapRepository(db *gorm.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

func (r *SwapRepository) Create(ctx context.Context, tx *gorm.DB, swap *model.SwapRequest) error {
	return conn(r.db, tx).WithContext(ctx).Create(swap).Error
}

func (r *SwapRepository) GetByID(ctx context.Context, id int64) (*model.SwapRequest, error) {
	var swap model.SwapRequest
	err := r.db.WithContext(ctx).First(&swap, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	return &swap, nil
}

func (r *SwapRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.SwapRequest, error) {
	var swap model.SwapRequest
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&swap, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	return &swap, nil
}

// UpdateStatus 按状态机做条件更新，并发下只有一个请求能成功
func (r *SwapRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, decidedBy int64, notes string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrSwapStatusInvalid
	}

	now := time.Now()
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"decided_by":  decidedBy,
			"decided_at":  &now,
			"admin_notes": notes,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSwapStatusInvalid
	}
	return nil
}

func (r *SwapRepository) ListByRequester(ctx context.Context, userID int64, page, pageSize int) ([]*model.SwapRequest, int64, error) {
	var swaps []*model.SwapRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SwapRequest{}).Where("requester_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&swaps).Error
	return swaps, total, err
}
