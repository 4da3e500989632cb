package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BookTypeSwap = "swap"
	BookTypeSale = "sale"
	BookTypeBoth = "both"
)

// Book 目录中的书，这里只保留结算需要的字段
type Book struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID     int64           `gorm:"index" json:"owner_id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Author      string          `gorm:"type:varchar(255)" json:"author"`
	Category    string          `gorm:"type:varchar(32)" json:"category"`
	Condition   string          `gorm:"type:varchar(32)" json:"condition"`
	BookType    string          `gorm:"type:varchar(16);not null" json:"book_type"`
	ZCoinValue  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"zcoin_value"`
	IsAvailable bool            `gorm:"index;not null" json:"is_available"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string {
	return "book"
}

// Swappable 是否允许用 ZCoin 换取
func (b *Book) Swappable() bool {
	return b.BookType == BookTypeSwap || b.BookType == BookTypeBoth
}

// Commodity 可用 ZCoin 兑换的商品
type Commodity struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string          `gorm:"type:varchar(128);not null" json:"name"`
	PriceZCoin decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_zcoin"`
	Stock      int             `gorm:"not null;default:0" json:"stock"`
	IsActive   bool            `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Commodity) TableName() string {
	return "commodity"
}

const (
	PurchaseStatusCompleted = "completed"
	PurchaseStatusCancelled = "cancelled"
)

// CommodityPurchase 商品兑换记录
type CommodityPurchase struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PurchaseNo  string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"purchase_no"`
	UserID      int64           `gorm:"index;not null" json:"user_id"`
	CommodityID int64           `gorm:"index;not null" json:"commodity_id"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	TotalZCoin  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_zcoin"`
	Status      string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CommodityPurchase) TableName() string {
	return "commodity_purchase"
}
