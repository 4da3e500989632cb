package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProviderTelebirr  = "telebirr"
	ProviderAbyssinia = "abyssinia"
	ProviderOther     = "other"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusVerified = "verified"
	PaymentStatusFailed   = "failed"
)

// Payment 已核验的外部付款记录。
// ReferenceNumber 全局唯一，用于防止同一笔转账重复入账。
type Payment struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferenceNumber string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference_number"`
	RawReference    string          `gorm:"type:varchar(100);not null" json:"raw_reference"`
	AccountSuffix   string          `gorm:"type:varchar(8)" json:"account_suffix,omitempty"`
	Provider        string          `gorm:"type:varchar(20);not null" json:"provider"`
	UserID          int64           `gorm:"index;not null" json:"user_id"`
	CoinPackageID   *int64          `json:"coin_package_id,omitempty"`
	ExpectedAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"expected_amount"`
	ActualAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"actual_amount"`
	ZCoinAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"zcoin_amount"`
	Status          string          `gorm:"type:varchar(20);index;not null" json:"status"`
	ReceiptNo       string          `gorm:"type:varchar(100)" json:"receipt_no"`
	PayerName       string          `gorm:"type:varchar(128)" json:"payer_name"`
	PayerAccount    string          `gorm:"type:varchar(64)" json:"payer_account"`
	TransactionDate string          `gorm:"type:varchar(64)" json:"transaction_date"`
	VerifiedAt      *time.Time      `json:"verified_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// CoinPackage 充值套餐
type CoinPackage struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(64);not null" json:"name"`
	PriceBirr   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price_birr"`
	ZCoinAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"zcoin_amount"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	SortOrder   int             `gorm:"not null;default:0" json:"sort_order"`
}

func (CoinPackage) TableName() string {
	return "coin_package"
}
