package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 账本事件类型
const (
	EventWalletCredited = "wallet.credited"
	EventWalletDebited  = "wallet.debited"
)

// OutboxMessage 与账本写入同一事务落库，由 OutboxSender 异步投递
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	EventType  string    `gorm:"type:varchar(32);not null" json:"event_type"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// AllModels 迁移顺序
func AllModels() []interface{} {
	return []interface{}{
		&Wallet{},
		&Transaction{},
		&Payment{},
		&CoinPackage{},
		&ValuationSettings{},
		&ValuationLog{},
		&Book{},
		&Commodity{},
		&CommodityPurchase{},
		&SwapRequest{},
		&OutboxMessage{},
	}
}
