package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 封面类型
const (
	CoverHardcover  = "hardcover"
	CoverPaperback  = "paperback"
	CoverDustJacket = "dust_jacket"
	CoverNoCover    = "no_cover"
)

// ValuationSettings 估值参数，每次修改插入新版本，version 最大的一行生效
type ValuationSettings struct {
	ID                   int64                      `gorm:"primaryKey;autoIncrement" json:"id"`
	Version              int                        `gorm:"uniqueIndex;not null" json:"version"`
	CategoryBases        map[string]decimal.Decimal `gorm:"type:text;serializer:json" json:"category_bases"`
	ConditionMultipliers map[string]decimal.Decimal `gorm:"type:text;serializer:json" json:"condition_multipliers"`
	DefaultCategory      string                     `gorm:"type:varchar(32);not null" json:"default_category"`
	DefaultCondition     string                     `gorm:"type:varchar(32);not null" json:"default_condition"`
	HardcoverBonus       decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"hardcover_bonus"`
	DustJacketCoverBonus decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"dust_jacket_cover_bonus"`
	NoCoverPenalty       decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"no_cover_penalty"` // 扣减幅度，非负
	ImagesBonus          decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"images_bonus"`
	DustJacketBonus      decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"dust_jacket_bonus"`
	FirstEditionBonus    decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"first_edition_bonus"`
	SignedBonus          decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"signed_bonus"`
	MinZCoin             decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"min_zcoin"`
	MaxZCoin             decimal.Decimal            `gorm:"type:decimal(10,2);not null" json:"max_zcoin"`
	ZCoinToBirrRate      decimal.Decimal            `gorm:"type:decimal(10,4);not null" json:"zcoin_to_birr_rate"`
	UpdatedBy            int64                      `json:"updated_by"`
	CreatedAt            time.Time                  `gorm:"autoCreateTime" json:"created_at"`
}

func (ValuationSettings) TableName() string {
	return "valuation_settings"
}

// DefaultValuationSettings 首次启动时写入的第 1 版参数
func DefaultValuationSettings() *ValuationSettings {
	d := decimal.RequireFromString
	return &ValuationSettings{
		Version: 1,
		CategoryBases: map[string]decimal.Decimal{
			"classics":     d("30"),
			"non-fiction":  d("25"),
			"fiction":      d("20"),
			"contemporary": d("15"),
			"academic":     d("35"),
			"children":     d("18"),
			"reference":    d("40"),
		},
		ConditionMultipliers: map[string]decimal.Decimal{
			"excellent": d("1.50"),
			"good":      d("1.00"),
			"fair":      d("0.70"),
			"poor":      d("0.40"),
		},
		DefaultCategory:      "contemporary",
		DefaultCondition:     "good",
		HardcoverBonus:       d("10"),
		DustJacketCoverBonus: d("15"),
		NoCoverPenalty:       d("5"),
		ImagesBonus:          d("5"),
		DustJacketBonus:      d("8"),
		FirstEditionBonus:    d("20"),
		SignedBonus:          d("25"),
		MinZCoin:             d("5"),
		MaxZCoin:             d("200"),
		ZCoinToBirrRate:      d("0.10"),
	}
}

// ValuationLog 每次估值的审计记录，写入后不再修改
type ValuationLog struct {
	ID                  int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	BookID              *int64              `gorm:"index" json:"book_id,omitempty"`
	Category            string              `gorm:"type:varchar(32)" json:"category"`
	Condition           string              `gorm:"type:varchar(32)" json:"condition"`
	CoverType           string              `gorm:"type:varchar(32)" json:"cover_type"`
	HasImages           bool                `json:"has_images"`
	HasDustJacket       bool                `json:"has_dust_jacket"`
	IsFirstEdition      bool                `json:"is_first_edition"`
	IsSigned            bool                `json:"is_signed"`
	BaseValue           decimal.Decimal     `gorm:"type:decimal(10,2)" json:"base_value"`
	ConditionMultiplier decimal.Decimal     `gorm:"type:decimal(10,2)" json:"condition_multiplier"`
	RawValue            decimal.Decimal     `gorm:"type:decimal(10,2)" json:"raw_value"`
	CoverBonus          decimal.Decimal     `gorm:"type:decimal(10,2)" json:"cover_bonus"`
	FeatureBonus        decimal.Decimal     `gorm:"type:decimal(10,2)" json:"feature_bonus"`
	CalculatedZCoin     decimal.Decimal     `gorm:"type:decimal(10,2)" json:"calculated_zcoin"`
	FinalZCoin          decimal.Decimal     `gorm:"type:decimal(10,2)" json:"final_zcoin"`
	PriceBirr           decimal.Decimal     `gorm:"type:decimal(10,2)" json:"price_birr"`
	ManualOverride      bool                `json:"manual_override"`
	ManualZCoin         decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"manual_zcoin"`
	SettingsVersion     int                 `json:"settings_version"`
	CalculatedBy        int64               `gorm:"index" json:"calculated_by"`
	Notes               string              `gorm:"type:varchar(255)" json:"notes"`
	CreatedAt           time.Time           `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ValuationLog) TableName() string {
	return "valuation_log"
}
