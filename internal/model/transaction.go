package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionKindTopUp    = "topup"
	TransactionKindSwap     = "swap"
	TransactionKindPurchase = "purchase"
	TransactionKindRefund   = "refund"
)

// Transaction 钱包流水，只追加不修改。
// 同一用户所有流水 amount 之和恒等于钱包余额。
type Transaction struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo     string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	UserID            int64           `gorm:"index;not null" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"` // 正数入账，负数出账
	Kind              string          `gorm:"type:varchar(20);index;not null" json:"kind"`
	Description       string          `gorm:"type:varchar(255)" json:"description"`
	RelatedSwapID     *int64          `gorm:"index" json:"related_swap_id,omitempty"`
	RelatedPaymentID  *int64          `gorm:"index" json:"related_payment_id,omitempty"`
	RelatedPurchaseID *int64          `gorm:"index" json:"related_purchase_id,omitempty"`
	BalanceBefore     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_before"`
	BalanceAfter      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "wallet_transaction"
}
