package repository

import (
	"context"
	"errors"

	"bookswap/internal/model"

	"gorm.io/gorm"
)

type ValuationRepository struct {
	db *gorm.DB
}

func NewValuationRepository(db *gorm.DB) *ValuationRepository {
	return &ValuationRepository{db: db}
}

// GetLatestSettings 返回版本号最大的一行，表为空时返回 nil, nil
func (r *ValuationRepository) GetLatestSettings(ctx context.Context, tx *gorm.DB) (*model.ValuationSettings, error) {
	var s model.ValuationSettings
	err := conn(r.db, tx).WithContext(ctx).Order("version DESC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *ValuationRepository) CreateSettings(ctx context.Context, tx *gorm.DB, s *model.ValuationSettings) error {
	return conn(r.db, tx).WithContext(ctx).Create(s).Error
}

func (r *ValuationRepository) CreateLog(ctx context.Context, tx *gorm.DB, log *model.ValuationLog) error {
	return conn(r.db, tx).WithContext(ctx).Create(log).Error
}

func (r *ValuationRepository) GetLog(ctx context.Context, id int64) (*model.ValuationLog, error) {
	var log model.ValuationLog
	err := r.db.WithContext(ctx).First(&log, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	return &log, nil
}
