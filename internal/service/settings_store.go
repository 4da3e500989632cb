package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bookswap/internal/model"
	"bookswap/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsStore 估值参数快照。读取无锁，更新时写入新版本并原子替换快照。
// 快照在发布后不可修改。
type SettingsStore struct {
	db      *gorm.DB
	repo    *repository.ValuationRepository
	current atomic.Pointer[model.ValuationSettings]
	mu      sync.Mutex
	log     *logrus.Entry
}

func NewSettingsStore(db *gorm.DB, log *logrus.Logger) *SettingsStore {
	return &SettingsStore{
		db:   db,
		repo: repository.NewValuationRepository(db),
		log:  log.WithField("component", "ValuationSettings"),
	}
}

// Load 读取最新版本，表为空时写入默认参数
func (s *SettingsStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.repo.GetLatestSettings(ctx, nil)
	if err != nil {
		return fmt.Errorf("load valuation settings: %w", err)
	}
	if latest == nil {
		latest = model.DefaultValuationSettings()
		if err := s.repo.CreateSettings(ctx, nil, latest); err != nil {
			if !repository.IsDuplicateKey(err) {
				return fmt.Errorf("seed valuation settings: %w", err)
			}
			// 其他实例已写入
			if latest, err = s.repo.GetLatestSettings(ctx, nil); err != nil {
				return fmt.Errorf("load valuation settings: %w", err)
			}
		}
		s.log.WithField("version", latest.Version).Info("已写入默认估值参数")
	}

	s.current.Store(latest)
	return nil
}

// Reload 其他实例更新参数后调用
func (s *SettingsStore) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Current 当前快照，未加载时返回默认参数
func (s *SettingsStore) Current() *model.ValuationSettings {
	if cur := s.current.Load(); cur != nil {
		return cur
	}
	return model.DefaultValuationSettings()
}

// SettingsUpdate 为 nil 的字段保持不变
type SettingsUpdate struct {
	CategoryBases        map[string]decimal.Decimal `json:"category_bases"`
	ConditionMultipliers map[string]decimal.Decimal `json:"condition_multipliers"`
	DefaultCategory      *string                    `json:"default_category"`
	DefaultCondition     *string                    `json:"default_condition"`
	HardcoverBonus       *decimal.Decimal           `json:"hardcover_bonus"`
	DustJacketCoverBonus *decimal.Decimal           `json:"dust_jacket_cover_bonus"`
	NoCoverPenalty       *decimal.Decimal           `json:"no_cover_penalty"`
	ImagesBonus          *decimal.Decimal           `json:"images_bonus"`
	DustJacketBonus      *decimal.Decimal           `json:"dust_jacket_bonus"`
	FirstEditionBonus    *decimal.Decimal           `json:"first_edition_bonus"`
	SignedBonus          *decimal.Decimal           `json:"signed_bonus"`
	MinZCoin             *decimal.Decimal           `json:"min_zcoin"`
	MaxZCoin             *decimal.Decimal           `json:"max_zcoin"`
	ZCoinToBirrRate      *decimal.Decimal           `json:"zcoin_to_birr_rate"`
}

// Update 基于最新版本生成 version+1 并发布
func (s *SettingsStore) Update(ctx context.Context, upd SettingsUpdate, actor int64) (*model.ValuationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *model.ValuationSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := s.repo.GetLatestSettings(ctx, tx)
		if err != nil {
			return err
		}
		if latest == nil {
			latest = s.Current()
		}

		next = applyUpdate(latest, upd)
		next.ID = 0
		next.CreatedAt = time.Time{}
		next.Version = latest.Version + 1
		next.UpdatedBy = actor
		if err := validateSettings(next); err != nil {
			return err
		}
		return s.repo.CreateSettings(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}

	s.current.Store(next)
	s.log.WithFields(logrus.Fields{"version": next.Version, "updated_by": actor}).Info("估值参数已更新")
	return next, nil
}

func applyUpdate(base *model.ValuationSettings, upd SettingsUpdate) *model.ValuationSettings {
	next := *base
	next.CategoryBases = normalizeKeys(base.CategoryBases)
	next.ConditionMultipliers = normalizeKeys(base.ConditionMultipliers)

	if upd.CategoryBases != nil {
		next.CategoryBases = normalizeKeys(upd.CategoryBases)
	}
	if upd.ConditionMultipliers != nil {
		next.ConditionMultipliers = normalizeKeys(upd.ConditionMultipliers)
	}
	if upd.DefaultCategory != nil {
		next.DefaultCategory = strings.ToLower(strings.TrimSpace(*upd.DefaultCategory))
	}
	if upd.DefaultCondition != nil {
		next.DefaultCondition = strings.ToLower(strings.TrimSpace(*upd.DefaultCondition))
	}

	set := func(dst *decimal.Decimal, src *decimal.Decimal) {
		if src != nil {
			*dst = *src
		}
	}
	set(&next.HardcoverBonus, upd.HardcoverBonus)
	set(&next.DustJacketCoverBonus, upd.DustJacketCoverBonus)
	set(&next.NoCoverPenalty, upd.NoCoverPenalty)
	set(&next.ImagesBonus, upd.ImagesBonus)
	set(&next.DustJacketBonus, upd.DustJacketBonus)
	set(&next.FirstEditionBonus, upd.FirstEditionBonus)
	set(&next.SignedBonus, upd.SignedBonus)
	set(&next.MinZCoin, upd.MinZCoin)
	set(&next.MaxZCoin, upd.MaxZCoin)
	set(&next.ZCoinToBirrRate, upd.ZCoinToBirrRate)
	return &next
}

func normalizeKeys(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func validateSettings(s *model.ValuationSettings) error {
	if len(s.CategoryBases) == 0 || len(s.ConditionMultipliers) == 0 {
		return invalidInput("category bases and condition multipliers must not be empty")
	}
	for k, v := range s.CategoryBases {
		if v.IsNegative() {
			return invalidInput("category base %q must not be negative", k)
		}
	}
	for k, v := range s.ConditionMultipliers {
		if v.IsNegative() {
			return invalidInput("condition multiplier %q must not be negative", k)
		}
	}
	// 加成与扣减都按绝对值保存，无封面扣减在估值时取负
	adjustments := map[string]decimal.Decimal{
		"hardcover_bonus":         s.HardcoverBonus,
		"dust_jacket_cover_bonus": s.DustJacketCoverBonus,
		"no_cover_penalty":        s.NoCoverPenalty,
		"images_bonus":            s.ImagesBonus,
		"dust_jacket_bonus":       s.DustJacketBonus,
		"first_edition_bonus":     s.FirstEditionBonus,
		"signed_bonus":            s.SignedBonus,
	}
	for name, v := range adjustments {
		if v.IsNegative() {
			return invalidInput("%s must not be negative", name)
		}
	}
	if _, ok := s.CategoryBases[s.DefaultCategory]; !ok {
		return invalidInput("default category %q has no base value", s.DefaultCategory)
	}
	if _, ok := s.ConditionMultipliers[s.DefaultCondition]; !ok {
		return invalidInput("default condition %q has no multiplier", s.DefaultCondition)
	}
	if s.MinZCoin.IsNegative() || s.MaxZCoin.LessThan(s.MinZCoin) {
		return invalidInput("zcoin range must satisfy 0 <= min <= max")
	}
	if !s.ZCoinToBirrRate.IsPositive() {
		return invalidInput("zcoin to birr rate must be positive")
	}
	return nil
}
