package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/infrastructure/lock"
	"bookswap/internal/model"
	"bookswap/internal/repository"
	"bookswap/pkg/idgen"
	"bookswap/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EntryRequest 一笔账本记账请求，Amount 为正数，方向由 Credit/Debit 决定
type EntryRequest struct {
	UserID      int64
	Amount      decimal.Decimal
	Kind        string
	Description string
	SwapID      *int64
	PaymentID   *int64
	PurchaseID  *int64
}

// LedgerService ZCoin 账本。余额只能通过 Credit/Debit 变动，每次变动追加一条流水。
type LedgerService struct {
	db              *gorm.DB
	locker          lock.Locker
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	topic           string
	log             *logrus.Entry
}

func NewLedgerService(db *gorm.DB, locker lock.Locker, cfg *config.Config, log *logrus.Logger) *LedgerService {
	return &LedgerService{
		db:              db,
		locker:          locker,
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		topic:           cfg.Kafka.Topic.LedgerEvents,
		log:             log.WithField("component", "Ledger"),
	}
}

func (s *LedgerService) GetOrCreateWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.walletRepo.GetOrCreate(ctx, nil, userID)
}

func (s *LedgerService) History(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}

// GetTransaction 只返回属于该用户的流水
func (s *LedgerService) GetTransaction(ctx context.Context, userID int64, transactionNo string) (*model.Transaction, error) {
	trans, err := s.transactionRepo.GetByTransactionNo(ctx, transactionNo)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	if trans.UserID != userID {
		return nil, ErrTransactionNotFound
	}
	return trans, nil
}

// WithWalletLock 持有用户钱包锁并开启数据库事务执行 fn
func (s *LedgerService) WithWalletLock(ctx context.Context, userID int64, fn func(tx *gorm.DB) error) error {
	release, err := s.locker.Acquire(ctx, lock.WalletKey(userID))
	if err != nil {
		return fmt.Errorf("acquire wallet lock: %w", err)
	}
	defer release()

	return s.db.WithContext(ctx).Transaction(fn)
}

// Credit 入账。tx 为 nil 时自行加锁并开启事务。
func (s *LedgerService) Credit(ctx context.Context, tx *gorm.DB, req EntryRequest) (*model.Transaction, error) {
	return s.post(ctx, tx, req, false)
}

// Debit 出账，余额不足时返回 *InsufficientBalanceError 且不做任何修改
func (s *LedgerService) Debit(ctx context.Context, tx *gorm.DB, req EntryRequest) (*model.Transaction, error) {
	return s.post(ctx, tx, req, true)
}

func (s *LedgerService) post(ctx context.Context, tx *gorm.DB, req EntryRequest, debit bool) (*model.Transaction, error) {
	if req.UserID <= 0 {
		return nil, invalidInput("user id is required")
	}
	// 按入账精度取整后再判断，避免写入 0.00 流水
	req.Amount = money.Round2(req.Amount)
	if !req.Amount.IsPositive() {
		return nil, invalidInput("ledger amount must be positive after rounding, got %s", req.Amount.String())
	}
	if !validKind(req.Kind) {
		return nil, invalidInput("unknown transaction kind %q", req.Kind)
	}

	if tx != nil {
		return s.apply(ctx, tx, req, debit)
	}

	var trans *model.Transaction
	err := s.WithWalletLock(ctx, req.UserID, func(tx *gorm.DB) error {
		var err error
		trans, err = s.apply(ctx, tx, req, debit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

func (s *LedgerService) apply(ctx context.Context, tx *gorm.DB, req EntryRequest, debit bool) (*model.Transaction, error) {
	if _, err := s.walletRepo.GetOrCreate(ctx, tx, req.UserID); err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	wallet, err := s.walletRepo.GetForUpdate(ctx, tx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	amount := req.Amount
	signed := amount
	if debit {
		if wallet.Balance.LessThan(amount) {
			return nil, &InsufficientBalanceError{
				Balance:   wallet.Balance,
				Required:  amount,
				Shortfall: amount.Sub(wallet.Balance),
			}
		}
		signed = amount.Neg()
	}
	after := wallet.Balance.Add(signed)

	if err := s.walletRepo.UpdateBalance(ctx, tx, req.UserID, after, wallet.Version); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	trans := &model.Transaction{
		TransactionNo:     idgen.GenerateTransactionNo(),
		UserID:            req.UserID,
		Amount:            signed,
		Kind:              req.Kind,
		Description:       req.Description,
		RelatedSwapID:     req.SwapID,
		RelatedPaymentID:  req.PaymentID,
		RelatedPurchaseID: req.PurchaseID,
		BalanceBefore:     wallet.Balance,
		BalanceAfter:      after,
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	if err := s.enqueueEvent(ctx, tx, trans, debit); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        req.UserID,
		"transaction_no": trans.TransactionNo,
		"kind":           req.Kind,
		"amount":         signed.String(),
		"balance_after":  after.String(),
	}).Info("记账成功")

	return trans, nil
}

type ledgerEvent struct {
	Event         string `json:"event"`
	TransactionNo string `json:"transaction_no"`
	UserID        int64  `json:"user_id"`
	Kind          string `json:"kind"`
	Amount        string `json:"amount"`
	BalanceAfter  string `json:"balance_after"`
	SwapID        *int64 `json:"swap_id,omitempty"`
	PaymentID     *int64 `json:"payment_id,omitempty"`
	PurchaseID    *int64 `json:"purchase_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

func (s *LedgerService) enqueueEvent(ctx context.Context, tx *gorm.DB, trans *model.Transaction, debit bool) error {
	eventType := model.EventWalletCredited
	if debit {
		eventType = model.EventWalletDebited
	}

	payload, err := json.Marshal(ledgerEvent{
		Event:         eventType,
		TransactionNo: trans.TransactionNo,
		UserID:        trans.UserID,
		Kind:          trans.Kind,
		Amount:        trans.Amount.StringFixed(2),
		BalanceAfter:  trans.BalanceAfter.StringFixed(2),
		SwapID:        trans.RelatedSwapID,
		PaymentID:     trans.RelatedPaymentID,
		PurchaseID:    trans.RelatedPurchaseID,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode ledger event: %w", err)
	}

	msg := &model.OutboxMessage{
		MessageKey: fmt.Sprintf("wallet-%d", trans.UserID),
		EventType:  eventType,
		Topic:      s.topic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}

func validKind(kind string) bool {
	switch kind {
	case model.TransactionKindTopUp, model.TransactionKindSwap,
		model.TransactionKindPurchase, model.TransactionKindRefund:
		return true
	}
	return false
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
