package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SwapStatusPending   = "pending"
	SwapStatusApproved  = "approved"
	SwapStatusRejected  = "rejected"
	SwapStatusCancelled = "cancelled"
)

var ValidSwapTransitions = map[string][]string{
	SwapStatusPending: {SwapStatusApproved, SwapStatusRejected, SwapStatusCancelled},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowed, ok := ValidSwapTransitions[currentStatus]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// SwapRequest 用户提交一本书换取目录中的另一本
type SwapRequest struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SwapNo           string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"swap_no"`
	RequesterID      int64           `gorm:"index;not null" json:"requester_id"`
	RequestedBookID  int64           `gorm:"index;not null" json:"requested_book_id"`
	OfferedTitle     string          `gorm:"type:varchar(255);not null" json:"offered_title"`
	OfferedAuthor    string          `gorm:"type:varchar(255)" json:"offered_author"`
	OfferedCategory  string          `gorm:"type:varchar(32)" json:"offered_category"`
	OfferedCondition string          `gorm:"type:varchar(32)" json:"offered_condition"`
	CalculatedZCoin  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"calculated_zcoin"`
	RequiredZCoin    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"required_zcoin"`
	ValuationLogID   int64           `json:"valuation_log_id"`
	Status           string          `gorm:"type:varchar(20);index;not null" json:"status"`
	AdminNotes       string          `gorm:"type:varchar(255)" json:"admin_notes"`
	DecidedBy        *int64          `json:"decided_by,omitempty"`
	DecidedAt        *time.Time      `json:"decided_at,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SwapRequest) TableName() string {
	return "swap_request"
}
