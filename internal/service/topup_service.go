package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/model"
	"bookswap/internal/repository"
	"bookswap/internal/verification"
	"bookswap/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	referencePattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,64}$`)
	suffixPattern    = regexp.MustCompile(`^\d{5}$`)
)

// TopUpRequest 用户提交的一笔人工转账
type TopUpRequest struct {
	UserID        int64
	Provider      string
	Reference     string
	AccountSuffix string
	CoinPackageID *int64
	CustomAmount  *decimal.Decimal
}

// TopUpResult 充值成功后的返回
type TopUpResult struct {
	Success       bool            `json:"success"`
	ZCoinAdded    decimal.Decimal `json:"zcoin_added"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Payer         string          `json:"payer"`
	ReceiptNo     string          `json:"receipt_no"`
	Reference     string          `json:"reference"`
	PaymentID     int64           `json:"payment_id"`
	TransactionNo string          `json:"transaction_no"`
}

// TopUpService 核验 -> 对账 -> 入账
type TopUpService struct {
	ledger        *LedgerService
	verifiers     *verification.Registry
	quoter        *Quoter
	reconciler    *Reconciler
	paymentRepo   *repository.PaymentRepository
	defaultSuffix string
	log           *logrus.Entry
}

func NewTopUpService(
	db *gorm.DB,
	ledger *LedgerService,
	verifiers *verification.Registry,
	packages *PackageCatalog,
	cfg *config.Config,
	log *logrus.Logger,
) *TopUpService {
	return &TopUpService{
		ledger:        ledger,
		verifiers:     verifiers,
		quoter:        NewQuoter(packages, cfg.Ledger.MinTopUpAmount(), cfg.Ledger.Rate()),
		reconciler:    NewReconciler(cfg.Ledger.Tolerance()),
		paymentRepo:   repository.NewPaymentRepository(db),
		defaultSuffix: cfg.Verification.Abyssinia.DefaultSuffix,
		log:           log.WithField("component", "TopUp"),
	}
}

// ReferenceKey 付款唯一键。银行转账同一参考号可能对应不同收款账号，键中带上后缀。
func ReferenceKey(provider, reference, suffix string) string {
	ref := verification.NormalizeReference(reference)
	if provider == model.ProviderAbyssinia {
		return ref + strings.TrimSpace(suffix)
	}
	return ref
}

func (s *TopUpService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	return s.quoter.Quote(ctx, req)
}

func (s *TopUpService) Packages(ctx context.Context) ([]*model.CoinPackage, error) {
	return s.quoter.packages.List(ctx)
}

func (s *TopUpService) ListPayments(ctx context.Context, userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.paymentRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *TopUpService) normalize(req *TopUpRequest) error {
	if req.UserID <= 0 {
		return invalidInput("user id is required")
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	req.Reference = strings.TrimSpace(req.Reference)
	req.AccountSuffix = strings.TrimSpace(req.AccountSuffix)

	if !referencePattern.MatchString(req.Reference) {
		return invalidInput("reference must be 4-64 letters, digits or dashes")
	}
	if _, ok := s.verifiers.Get(req.Provider); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, req.Provider)
	}

	switch req.Provider {
	case model.ProviderAbyssinia:
		if req.AccountSuffix == "" {
			req.AccountSuffix = s.defaultSuffix
		}
		if !suffixPattern.MatchString(req.AccountSuffix) {
			return invalidInput("account suffix must be exactly 5 digits")
		}
	default:
		if req.AccountSuffix != "" {
			return invalidInput("account suffix is only used for bank transfers")
		}
	}
	return nil
}

// VerifyAndCredit 完整充值流程。核验失败或金额不符时不写任何数据，参考号可以重试。
func (s *TopUpService) VerifyAndCredit(ctx context.Context, req TopUpRequest) (*TopUpResult, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	quote, err := s.quoter.Quote(ctx, QuoteRequest{CoinPackageID: req.CoinPackageID, CustomAmount: req.CustomAmount})
	if err != nil {
		return nil, err
	}

	key := ReferenceKey(req.Provider, req.Reference, req.AccountSuffix)
	log := s.log.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"provider":  req.Provider,
		"reference": key,
		"expected":  quote.ExpectedAmount.String(),
	})

	exists, err := s.paymentRepo.ExistsByReference(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check reference: %w", err)
	}
	if exists {
		log.Warn("参考号已使用")
		return nil, ErrDuplicateReference
	}

	verifier, _ := s.verifiers.Get(req.Provider)
	outcome := verifier.Verify(ctx, verification.Request{
		Reference:      req.Reference,
		AccountSuffix:  req.AccountSuffix,
		ExpectedAmount: quote.ExpectedAmount,
	})
	if !outcome.Success {
		log.WithFields(logrus.Fields{"failure": outcome.Failure, "reason": outcome.Reason}).Warn("付款核验失败")
		return nil, &VerificationError{Outcome: outcome}
	}

	if err := s.reconciler.Reconcile(quote.ExpectedAmount, outcome.Amount); err != nil {
		log.WithField("received", outcome.Amount.String()).Warn("金额不符")
		return nil, err
	}

	now := time.Now()
	payment := &model.Payment{
		ReferenceNumber: key,
		RawReference:    req.Reference,
		AccountSuffix:   req.AccountSuffix,
		Provider:        req.Provider,
		UserID:          req.UserID,
		CoinPackageID:   quote.CoinPackageID,
		ExpectedAmount:  quote.ExpectedAmount,
		ActualAmount:    outcome.Amount,
		ZCoinAmount:     quote.ZCoinAmount,
		Status:          model.PaymentStatusVerified,
		ReceiptNo:       outcome.ProviderReference,
		PayerName:       outcome.PayerName,
		PayerAccount:    outcome.PayerAccount,
		TransactionDate: outcome.TransactionDate,
		VerifiedAt:      &now,
	}

	var trans *model.Transaction
	err = s.ledger.WithWalletLock(ctx, req.UserID, func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return err
		}
		paymentID := payment.ID
		var err error
		trans, err = s.ledger.Credit(ctx, tx, EntryRequest{
			UserID:      req.UserID,
			Amount:      quote.ZCoinAmount,
			Kind:        model.TransactionKindTopUp,
			Description: topUpDescription(req.Provider, req.Reference, outcome.Amount),
			PaymentID:   &paymentID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			log.Warn("并发提交同一参考号")
			return nil, ErrDuplicateReference
		}
		log.WithError(err).WithFields(logrus.Fields{
			"received": outcome.Amount.String(),
			"zcoin":    quote.ZCoinAmount.String(),
			"payer":    outcome.PayerName,
			"receipt":  outcome.ProviderReference,
		}).Error("付款已核验但入账失败，需要人工处理")
		return nil, &CreditFailedError{Reference: key, Err: err}
	}

	log.WithFields(logrus.Fields{
		"zcoin":          quote.ZCoinAmount.String(),
		"transaction_no": trans.TransactionNo,
	}).Info("充值成功")

	return &TopUpResult{
		Success:       true,
		ZCoinAdded:    trans.Amount,
		AmountPaid:    outcome.Amount,
		NewBalance:    trans.BalanceAfter,
		Payer:         outcome.PayerName,
		ReceiptNo:     outcome.ProviderReference,
		Reference:     key,
		PaymentID:     payment.ID,
		TransactionNo: trans.TransactionNo,
	}, nil
}

func topUpDescription(provider, reference string, amount decimal.Decimal) string {
	label := "Telebirr"
	if provider == model.ProviderAbyssinia {
		label = "Bank of Abyssinia"
	}
	return fmt.Sprintf("%s top-up • %s • %s Birr", label, strings.ToUpper(reference), money.Format(amount))
}
