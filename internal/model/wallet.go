package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet 用户 ZCoin 钱包，余额只能通过账本流水变动
type Wallet struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64           `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	Version   int             `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}
