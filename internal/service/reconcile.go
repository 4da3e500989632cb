package service

import (
	"context"
	"errors"

	"bookswap/internal/model"
	"bookswap/internal/repository"
	"bookswap/pkg/money"

	"github.com/shopspring/decimal"
)

// Reconciler 比对期望金额与渠道核验到的金额
type Reconciler struct {
	tolerance decimal.Decimal
}

func NewReconciler(tolerance decimal.Decimal) *Reconciler {
	return &Reconciler{tolerance: tolerance}
}

// Reconcile expected-ε <= received <= expected+ε 时通过
func (r *Reconciler) Reconcile(expected, received decimal.Decimal) error {
	if money.Within(expected, received, r.tolerance) {
		return nil
	}
	return &AmountMismatchError{Expected: expected, Received: received}
}

// QuoteRequest 套餐与自定义金额二选一
type QuoteRequest struct {
	CoinPackageID *int64
	CustomAmount  *decimal.Decimal
}

// Quote 充值报价
type Quote struct {
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ZCoinAmount    decimal.Decimal `json:"zcoin_amount"`
	CoinPackageID  *int64          `json:"coin_package_id,omitempty"`
	PackageName    string          `json:"package_name,omitempty"`
}

// Quoter 计算一次充值应付金额与可得 ZCoin
type Quoter struct {
	packages *PackageCatalog
	minTopUp decimal.Decimal
	rate     decimal.Decimal
}

func NewQuoter(packages *PackageCatalog, minTopUp, zcoinPerBirr decimal.Decimal) *Quoter {
	return &Quoter{packages: packages, minTopUp: minTopUp, rate: zcoinPerBirr}
}

func (q *Quoter) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	switch {
	case req.CoinPackageID != nil && req.CustomAmount != nil:
		return nil, invalidInput("choose either a coin package or a custom amount, not both")
	case req.CoinPackageID == nil && req.CustomAmount == nil:
		return nil, invalidInput("a coin package or a custom amount is required")
	}

	if req.CoinPackageID != nil {
		pkg, err := q.packages.Get(ctx, *req.CoinPackageID)
		if err != nil {
			if errors.Is(err, repository.ErrPackageNotFound) {
				return nil, ErrPackageNotFound
			}
			return nil, err
		}
		return packageQuote(pkg), nil
	}

	amount := money.Round2(*req.CustomAmount)
	if amount.LessThan(q.minTopUp) {
		return nil, &belowMinimumError{min: q.minTopUp}
	}
	return &Quote{
		ExpectedAmount: amount,
		ZCoinAmount:    money.Round2(amount.Mul(q.rate)),
	}, nil
}

func packageQuote(pkg *model.CoinPackage) *Quote {
	id := pkg.ID
	return &Quote{
		ExpectedAmount: pkg.PriceBirr,
		ZCoinAmount:    pkg.ZCoinAmount,
		CoinPackageID:  &id,
		PackageName:    pkg.Name,
	}
}

type belowMinimumError struct {
	min decimal.Decimal
}

func (e *belowMinimumError) Error() string {
	return "minimum top-up is " + e.min.StringFixed(2) + " Birr"
}

func (e *belowMinimumError) Is(target error) bool {
	return target == ErrBelowMinimum || target == ErrInvalidInput
}
