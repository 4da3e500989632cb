package repository

import (
	"context"
	"errors"

	"bookswap/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := conn(r.db, tx).WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetForUpdate SELECT ... FOR UPDATE，必须在事务内调用
func (r *WalletRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetOrCreate 钱包不存在时以零余额创建，并发创建由唯一索引兜底
func (r *WalletRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	wallet, err := r.GetByUserID(ctx, tx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	err = conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&model.Wallet{UserID: userID, Balance: decimal.Zero}).Error
	if err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, tx, userID)
}

// UpdateBalance 以版本号做 CAS 写入新余额
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx *gorm.DB, userID int64, balance decimal.Decimal, version int) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Wallet{}).
		Where("user_id = ? AND version = ?", userID, version).
		Updates(map[string]interface{}{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// ListAfter 按 id 分批遍历钱包
func (r *WalletRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*model.Wallet, error) {
	var wallets []*model.Wallet
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&wallets).Error
	return wallets, err
}
