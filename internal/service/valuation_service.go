package service

import (
	"context"
	"fmt"
	"strings"

	"bookswap/internal/model"
	"bookswap/internal/repository"
	"bookswap/pkg/money"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ValuationInput 估值输入
type ValuationInput struct {
	Category       string
	Condition      string
	CoverType      string
	HasImages      bool
	HasDustJacket  bool
	IsFirstEdition bool
	IsSigned       bool
	ManualOverride *decimal.Decimal
	BookID         *int64
	Actor          int64
	Notes          string
}

// ValuationResult 估值结果与明细
type ValuationResult struct {
	ZCoin               decimal.Decimal            `json:"zcoin"`
	PriceBirr           decimal.Decimal            `json:"price_birr"`
	BaseValue           decimal.Decimal            `json:"base_value"`
	ConditionMultiplier decimal.Decimal            `json:"condition_multiplier"`
	Bonuses             map[string]decimal.Decimal `json:"bonuses"`
	CalculatedZCoin     decimal.Decimal            `json:"calculated_zcoin"`
	IsManual            bool                       `json:"is_manual"`
	MinZCoin            decimal.Decimal            `json:"min_zcoin"`
	MaxZCoin            decimal.Decimal            `json:"max_zcoin"`
	CalculationID       int64                      `json:"calculation_id"`
	SettingsVersion     int                        `json:"settings_version"`
}

type ValuationService struct {
	settings *SettingsStore
	repo     *repository.ValuationRepository
}

func NewValuationService(db *gorm.DB, settings *SettingsStore) *ValuationService {
	return &ValuationService{
		settings: settings,
		repo:     repository.NewValuationRepository(db),
	}
}

func (s *ValuationService) Settings() *SettingsStore {
	return s.settings
}

// Calculate 计算书籍 ZCoin 估值并写入估值日志。tx 为 nil 时独立写入。
func (s *ValuationService) Calculate(ctx context.Context, tx *gorm.DB, in ValuationInput) (*ValuationResult, error) {
	if in.ManualOverride != nil && in.ManualOverride.IsNegative() {
		return nil, invalidInput("manual zcoin value must not be negative")
	}

	cfg := s.settings.Current()

	category := strings.ToLower(strings.TrimSpace(in.Category))
	base, ok := cfg.CategoryBases[category]
	if !ok {
		base = cfg.CategoryBases[cfg.DefaultCategory]
	}

	condition := strings.ToLower(strings.TrimSpace(in.Condition))
	multiplier, ok := cfg.ConditionMultipliers[condition]
	if !ok {
		multiplier = cfg.ConditionMultipliers[cfg.DefaultCondition]
	}

	raw := base.Mul(multiplier)
	bonuses := make(map[string]decimal.Decimal)

	coverBonus := decimal.Zero
	switch strings.ToLower(strings.TrimSpace(in.CoverType)) {
	case model.CoverHardcover:
		coverBonus = cfg.HardcoverBonus
	case model.CoverDustJacket:
		coverBonus = cfg.DustJacketCoverBonus
	case model.CoverNoCover:
		coverBonus = cfg.NoCoverPenalty.Neg()
	}
	if !coverBonus.IsZero() {
		bonuses["cover"] = coverBonus
	}

	featureBonus := decimal.Zero
	addFeature := func(on bool, name string, v decimal.Decimal) {
		if on {
			bonuses[name] = v
			featureBonus = featureBonus.Add(v)
		}
	}
	addFeature(in.HasImages, "images", cfg.ImagesBonus)
	addFeature(in.HasDustJacket, "dust_jacket", cfg.DustJacketBonus)
	addFeature(in.IsFirstEdition, "first_edition", cfg.FirstEditionBonus)
	addFeature(in.IsSigned, "signed", cfg.SignedBonus)

	calculated := raw.Add(coverBonus).Add(featureBonus)

	final := calculated
	if final.LessThan(cfg.MinZCoin) {
		final = cfg.MinZCoin
	}
	if final.GreaterThan(cfg.MaxZCoin) {
		final = cfg.MaxZCoin
	}

	manual := decimal.NullDecimal{}
	if in.ManualOverride != nil {
		final = *in.ManualOverride
		manual = decimal.NewNullDecimal(money.Round2(*in.ManualOverride))
	}

	final = money.Round2(final)
	price := money.Round2(final.Mul(cfg.ZCoinToBirrRate))

	entry := &model.ValuationLog{
		BookID:              in.BookID,
		Category:            category,
		Condition:           condition,
		CoverType:           strings.ToLower(strings.TrimSpace(in.CoverType)),
		HasImages:           in.HasImages,
		HasDustJacket:       in.HasDustJacket,
		IsFirstEdition:      in.IsFirstEdition,
		IsSigned:            in.IsSigned,
		BaseValue:           base,
		ConditionMultiplier: multiplier,
		RawValue:            money.Round2(raw),
		CoverBonus:          coverBonus,
		FeatureBonus:        featureBonus,
		CalculatedZCoin:     money.Round2(calculated),
		FinalZCoin:          final,
		PriceBirr:           price,
		ManualOverride:      in.ManualOverride != nil,
		ManualZCoin:         manual,
		SettingsVersion:     cfg.Version,
		CalculatedBy:        in.Actor,
		Notes:               in.Notes,
	}
	if err := s.repo.CreateLog(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("write valuation log: %w", err)
	}

	return &ValuationResult{
		ZCoin:               final,
		PriceBirr:           price,
		BaseValue:           base,
		ConditionMultiplier: multiplier,
		Bonuses:             bonuses,
		CalculatedZCoin:     money.Round2(calculated),
		IsManual:            in.ManualOverride != nil,
		MinZCoin:            cfg.MinZCoin,
		MaxZCoin:            cfg.MaxZCoin,
		CalculationID:       entry.ID,
		SettingsVersion:     cfg.Version,
	}, nil
}

func (s *ValuationService) GetLog(ctx context.Context, id int64) (*model.ValuationLog, error) {
	return s.repo.GetLog(ctx, id)
}
