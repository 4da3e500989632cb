package repository

import (
	"context"
	"errors"

	"bookswap/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository 书籍与商品。目录的增删改不在本服务内，这里只有结算需要的读写。
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetBookForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Book, error) {
	var book model.Book
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (r *CatalogRepository) SetBookAvailable(ctx context.Context, tx *gorm.DB, id int64, available bool) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&model.Book{}).
		Where("id = ?", id).
		Update("is_available", available).Error
}

func (r *CatalogRepository) GetCommodityForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Commodity, error) {
	var c model.Commodity
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_active = ?", id, true).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommodityNotFound
		}
		return nil, err
	}
	return &c, nil
}

// AdjustStock delta 为负时扣减库存，库存不足返回 ErrStockNotEnough
func (r *CatalogRepository) AdjustStock(ctx context.Context, tx *gorm.DB, id int64, delta int) error {
	query := conn(r.db, tx).WithContext(ctx).Model(&model.Commodity{}).Where("id = ?", id)
	if delta < 0 {
		query = query.Where("stock >= ?", -delta)
	}
	result := query.UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStockNotEnough
	}
	return nil
}

func (r *CatalogRepository) CreatePurchase(ctx context.Context, tx *gorm.DB, p *model.CommodityPurchase) error {
	return conn(r.db, tx).WithContext(ctx).Create(p).Error
}

func (r *CatalogRepository) GetPurchaseForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.CommodityPurchase, error) {
	var p model.CommodityPurchase
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) UpdatePurchaseStatus(ctx context.Context, tx *gorm.DB, id int64, from, to string) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.CommodityPurchase{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseStatusInvalid
	}
	return nil
}
