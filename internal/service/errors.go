package service

import (
	"errors"
	"fmt"

	"bookswap/internal/verification"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrBelowMinimum        = errors.New("amount below minimum top-up")
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrPackageNotFound     = errors.New("coin package not found")
	ErrVerificationFailed  = errors.New("payment verification failed")
	ErrAmountMismatch      = errors.New("paid amount does not match expected amount")
	ErrDuplicateReference  = errors.New("this payment reference has already been used")
	ErrInsufficientBalance = errors.New("insufficient ZCoin balance")
	ErrCreditFailed        = errors.New("Payment verified but failed to credit ZCoin. Contact support.")

	ErrBookNotFound      = errors.New("book not found")
	ErrBookUnavailable   = errors.New("book is not available for swap")
	ErrSwapNotFound      = errors.New("swap request not found")
	ErrInvalidState      = errors.New("action not allowed in current state")
	ErrAlreadyRefunded   = errors.New("already refunded")
	ErrCommodityNotFound = errors.New("commodity not found")
	ErrOutOfStock        = errors.New("commodity out of stock")
	ErrPurchaseNotFound  = errors.New("purchase not found")

	ErrTransactionNotFound = errors.New("transaction not found")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// VerificationError 外部渠道未能确认付款
type VerificationError struct {
	Outcome verification.Outcome
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("payment verification failed: %s", e.Outcome.Reason)
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// AmountMismatchError 核验金额超出容差
type AmountMismatchError struct {
	Expected decimal.Decimal
	Received decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %s Birr, received %s Birr",
		e.Expected.StringFixed(2), e.Received.StringFixed(2))
}

func (e *AmountMismatchError) Is(target error) bool {
	return target == ErrAmountMismatch
}

// InsufficientBalanceError 余额不足，Shortfall 为差额
type InsufficientBalanceError struct {
	Balance   decimal.Decimal
	Required  decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient ZCoin balance: have %s, need %s",
		e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// CreditFailedError 付款已核验但入账事务失败，需要人工介入
type CreditFailedError struct {
	Reference string
	Err       error
}

func (e *CreditFailedError) Error() string {
	return ErrCreditFailed.Error()
}

func (e *CreditFailedError) Unwrap() error {
	return e.Err
}

func (e *CreditFailedError) Is(target error) bool {
	return target == ErrCreditFailed
}
