package repository

import (
	"context"
	"errors"

	"bookswap/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	return conn(r.db, tx).WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// ListByUserID 最新的在前，同一时刻按 id 倒序
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// ExistsRefund 是否已有关联到该换书申请或兑换单的退款流水
func (r *TransactionRepository) ExistsRefund(ctx context.Context, tx *gorm.DB, swapID, purchaseID *int64) (bool, error) {
	query := conn(r.db, tx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("kind = ?", model.TransactionKindRefund)
	switch {
	case swapID != nil:
		query = query.Where("related_swap_id = ?", *swapID)
	case purchaseID != nil:
		query = query.Where("related_purchase_id = ?", *purchaseID)
	default:
		return false, nil
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumByUserID 在内存中用 decimal 累加，避免数据库浮点求和的误差
func (r *TransactionRepository) SumByUserID(ctx context.Context, userID int64) (decimal.Decimal, int64, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("user_id = ?", userID).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, 0, err
	}

	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum, int64(len(amounts)), nil
}
