package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrOptimisticLock        = errors.New("wallet was modified concurrently, retry")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrDuplicatePayment      = errors.New("payment reference already recorded")
	ErrBookNotFound          = errors.New("book not found")
	ErrCommodityNotFound     = errors.New("commodity not found")
	ErrPurchaseNotFound      = errors.New("purchase not found")
	ErrPackageNotFound       = errors.New("coin package not found")
	ErrSwapNotFound          = errors.New("swap request not found")
	ErrSwapStatusInvalid     = errors.New("swap request status does not allow this action")
	ErrPurchaseStatusInvalid = errors.New("purchase status does not allow this action")
	ErrStockNotEnough        = errors.New("commodity out of stock")
	ErrLogNotFound           = errors.New("valuation log not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
)

// IsDuplicateKey 唯一索引冲突。开启 TranslateError 后驱动会返回 gorm.ErrDuplicatedKey，
// 未开启时按各驱动的错误文本判断。
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}

func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
