package repository

import (
	"context"
	"errors"

	"bookswap/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create 唯一索引冲突返回 ErrDuplicatePayment
func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	err := conn(r.db, tx).WithContext(ctx).Create(payment).Error
	if IsDuplicateKey(err) {
		return ErrDuplicatePayment
	}
	return err
}

func (r *PaymentRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("reference_number = ?", reference).
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where("reference_number = ?", reference).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	var payments []*model.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Payment{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error

	return payments, total, err
}

func (r *PaymentRepository) GetPackage(ctx context.Context, id int64) (*model.CoinPackage, error) {
	var pkg model.CoinPackage
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *PaymentRepository) ListActivePackages(ctx context.Context) ([]*model.CoinPackage, error) {
	var pkgs []*model.CoinPackage
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&pkgs).Error
	return pkgs, err
}
