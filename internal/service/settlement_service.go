package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookswap/internal/model"
	"bookswap/internal/repository"
	"bookswap/pkg/idgen"
	"bookswap/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SwapInput 用户提交的书与想换的目录书籍
type SwapInput struct {
	UserID          int64
	RequestedBookID int64
	OfferedTitle    string
	OfferedAuthor   string
	Category        string
	Condition       string
	CoverType       string
	HasImages       bool
	HasDustJacket   bool
	IsFirstEdition  bool
	IsSigned        bool
}

// SettlementService 换书与商品兑换的结算，所有余额变动经由 LedgerService
type SettlementService struct {
	ledger          *LedgerService
	valuation       *ValuationService
	swapRepo        *repository.SwapRepository
	catalogRepo     *repository.CatalogRepository
	transactionRepo *repository.TransactionRepository
	log             *logrus.Entry
}

func NewSettlementService(db *gorm.DB, ledger *LedgerService, valuation *ValuationService, log *logrus.Logger) *SettlementService {
	return &SettlementService{
		ledger:          ledger,
		valuation:       valuation,
		swapRepo:        repository.NewSwapRepository(db),
		catalogRepo:     repository.NewCatalogRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		log:             log.WithField("component", "Settlement"),
	}
}

// CreateSwap 估值、锁定书籍、扣款并下架，全部在一个事务内完成
func (s *SettlementService) CreateSwap(ctx context.Context, in SwapInput) (*model.SwapRequest, error) {
	if in.UserID <= 0 || in.RequestedBookID <= 0 {
		return nil, invalidInput("user id and requested book id are required")
	}
	title := strings.TrimSpace(in.OfferedTitle)
	if title == "" {
		return nil, invalidInput("offered book title is required")
	}

	var swap *model.SwapRequest
	err := s.ledger.WithWalletLock(ctx, in.UserID, func(tx *gorm.DB) error {
		book, err := s.catalogRepo.GetBookForUpdate(ctx, tx, in.RequestedBookID)
		if err != nil {
			return mapRepoErr(err)
		}
		if !book.IsAvailable || !book.Swappable() {
			return ErrBookUnavailable
		}
		if !book.ZCoinValue.IsPositive() {
			return invalidInput("book %d has no zcoin value", book.ID)
		}

		result, err := s.valuation.Calculate(ctx, tx, ValuationInput{
			Category:       in.Category,
			Condition:      in.Condition,
			CoverType:      in.CoverType,
			HasImages:      in.HasImages,
			HasDustJacket:  in.HasDustJacket,
			IsFirstEdition: in.IsFirstEdition,
			IsSigned:       in.IsSigned,
			Actor:          in.UserID,
			Notes:          "swap submission: " + title,
		})
		if err != nil {
			return err
		}

		swap = &model.SwapRequest{
			SwapNo:           idgen.GenerateSwapNo(),
			RequesterID:      in.UserID,
			RequestedBookID:  book.ID,
			OfferedTitle:     title,
			OfferedAuthor:    strings.TrimSpace(in.OfferedAuthor),
			OfferedCategory:  strings.ToLower(strings.TrimSpace(in.Category)),
			OfferedCondition: strings.ToLower(strings.TrimSpace(in.Condition)),
			CalculatedZCoin:  result.ZCoin,
			RequiredZCoin:    money.Round2(book.ZCoinValue),
			ValuationLogID:   result.CalculationID,
			Status:           model.SwapStatusPending,
		}
		if err := s.swapRepo.Create(ctx, tx, swap); err != nil {
			return fmt.Errorf("create swap: %w", err)
		}

		if _, err := s.ledger.Debit(ctx, tx, EntryRequest{
			UserID:      in.UserID,
			Amount:      swap.RequiredZCoin,
			Kind:        model.TransactionKindSwap,
			Description: fmt.Sprintf("Swap %s for \"%s\"", swap.SwapNo, book.Title),
			SwapID:      &swap.ID,
		}); err != nil {
			return err
		}

		return s.catalogRepo.SetBookAvailable(ctx, tx, book.ID, false)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"swap_no":    swap.SwapNo,
		"user_id":    in.UserID,
		"book_id":    in.RequestedBookID,
		"required":   swap.RequiredZCoin.String(),
		"calculated": swap.CalculatedZCoin.String(),
	}).Info("换书申请已创建")
	return swap, nil
}

// ApproveSwap 审核通过，提交书籍估值高于所需时退还差额
func (s *SettlementService) ApproveSwap(ctx context.Context, swapID, adminID int64, notes string) (*model.SwapRequest, error) {
	current, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	var swap *model.SwapRequest
	err = s.ledger.WithWalletLock(ctx, current.RequesterID, func(tx *gorm.DB) error {
		swap, err = s.swapRepo.GetForUpdate(ctx, tx, swapID)
		if err != nil {
			return mapRepoErr(err)
		}
		if swap.Status != model.SwapStatusPending {
			return ErrInvalidState
		}
		if err := s.swapRepo.UpdateStatus(ctx, tx, swap.ID, swap.Status, model.SwapStatusApproved, adminID, notes); err != nil {
			return mapRepoErr(err)
		}

		diff := swap.CalculatedZCoin.Sub(swap.RequiredZCoin)
		if !diff.IsPositive() {
			return nil
		}
		if err := s.refundGuard(ctx, tx, &swap.ID, nil); err != nil {
			return err
		}
		_, err := s.ledger.Credit(ctx, tx, EntryRequest{
			UserID:      swap.RequesterID,
			Amount:      diff,
			Kind:        model.TransactionKindRefund,
			Description: fmt.Sprintf("Swap %s approved, valuation surplus", swap.SwapNo),
			SwapID:      &swap.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	swap.Status = model.SwapStatusApproved
	s.log.WithFields(logrus.Fields{"swap_no": swap.SwapNo, "admin_id": adminID}).Info("换书申请已通过")
	return swap, nil
}

// RejectSwap 审核拒绝，退还扣款并重新上架
func (s *SettlementService) RejectSwap(ctx context.Context, swapID, adminID int64, notes string) (*model.SwapRequest, error) {
	current, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return s.closeSwap(ctx, current.RequesterID, swapID, model.SwapStatusRejected, adminID, notes)
}

// CancelSwap 申请人撤回，只允许在待审核状态
func (s *SettlementService) CancelSwap(ctx context.Context, swapID, userID int64) (*model.SwapRequest, error) {
	return s.closeSwap(ctx, userID, swapID, model.SwapStatusCancelled, userID, "cancelled by requester")
}

func (s *SettlementService) closeSwap(ctx context.Context, requesterID, swapID int64, status string, actor int64, notes string) (*model.SwapRequest, error) {
	var swap *model.SwapRequest
	err := s.ledger.WithWalletLock(ctx, requesterID, func(tx *gorm.DB) error {
		var err error
		swap, err = s.swapRepo.GetForUpdate(ctx, tx, swapID)
		if err != nil {
			return mapRepoErr(err)
		}
		if swap.RequesterID != requesterID {
			return ErrSwapNotFound
		}
		if swap.Status != model.SwapStatusPending {
			return ErrInvalidState
		}
		if err := s.refundGuard(ctx, tx, &swap.ID, nil); err != nil {
			return err
		}
		if err := s.swapRepo.UpdateStatus(ctx, tx, swap.ID, swap.Status, status, actor, notes); err != nil {
			return mapRepoErr(err)
		}

		if _, err := s.ledger.Credit(ctx, tx, EntryRequest{
			UserID:      swap.RequesterID,
			Amount:      swap.RequiredZCoin,
			Kind:        model.TransactionKindRefund,
			Description: fmt.Sprintf("Swap %s %s, refund", swap.SwapNo, status),
			SwapID:      &swap.ID,
		}); err != nil {
			return err
		}
		return s.catalogRepo.SetBookAvailable(ctx, tx, swap.RequestedBookID, true)
	})
	if err != nil {
		return nil, err
	}

	swap.Status = status
	s.log.WithFields(logrus.Fields{
		"swap_no": swap.SwapNo,
		"status":  status,
		"actor":   actor,
		"refund":  swap.RequiredZCoin.String(),
	}).Info("换书申请已关闭并退款")
	return swap, nil
}

// CreatePurchase 扣库存并按 price x quantity 扣款
func (s *SettlementService) CreatePurchase(ctx context.Context, userID, commodityID int64, quantity int) (*model.CommodityPurchase, error) {
	if userID <= 0 || commodityID <= 0 {
		return nil, invalidInput("user id and commodity id are required")
	}
	if quantity < 1 {
		return nil, invalidInput("quantity must be at least 1")
	}

	var purchase *model.CommodityPurchase
	err := s.ledger.WithWalletLock(ctx, userID, func(tx *gorm.DB) error {
		commodity, err := s.catalogRepo.GetCommodityForUpdate(ctx, tx, commodityID)
		if err != nil {
			return mapRepoErr(err)
		}
		if commodity.Stock < quantity {
			return ErrOutOfStock
		}

		purchase = &model.CommodityPurchase{
			PurchaseNo:  idgen.GeneratePurchaseNo(),
			UserID:      userID,
			CommodityID: commodity.ID,
			Quantity:    quantity,
			TotalZCoin:  money.Round2(commodity.PriceZCoin.Mul(decimal.NewFromInt(int64(quantity)))),
			Status:      model.PurchaseStatusCompleted,
		}
		if err := s.catalogRepo.CreatePurchase(ctx, tx, purchase); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}

		if _, err := s.ledger.Debit(ctx, tx, EntryRequest{
			UserID:      userID,
			Amount:      purchase.TotalZCoin,
			Kind:        model.TransactionKindPurchase,
			Description: fmt.Sprintf("Purchase %s: %d x %s", purchase.PurchaseNo, quantity, commodity.Name),
			PurchaseID:  &purchase.ID,
		}); err != nil {
			return err
		}

		return mapRepoErr(s.catalogRepo.AdjustStock(ctx, tx, commodity.ID, -quantity))
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"purchase_no": purchase.PurchaseNo,
		"user_id":     userID,
		"total":       purchase.TotalZCoin.String(),
	}).Info("商品兑换成功")
	return purchase, nil
}

// CancelPurchase 退款并恢复库存
func (s *SettlementService) CancelPurchase(ctx context.Context, purchaseID, userID int64) (*model.CommodityPurchase, error) {
	var purchase *model.CommodityPurchase
	err := s.ledger.WithWalletLock(ctx, userID, func(tx *gorm.DB) error {
		var err error
		purchase, err = s.catalogRepo.GetPurchaseForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return mapRepoErr(err)
		}
		if purchase.UserID != userID {
			return ErrPurchaseNotFound
		}
		if purchase.Status != model.PurchaseStatusCompleted {
			return ErrInvalidState
		}
		if err := s.refundGuard(ctx, tx, nil, &purchase.ID); err != nil {
			return err
		}
		if err := s.catalogRepo.UpdatePurchaseStatus(ctx, tx, purchase.ID, model.PurchaseStatusCompleted, model.PurchaseStatusCancelled); err != nil {
			return mapRepoErr(err)
		}

		if _, err := s.ledger.Credit(ctx, tx, EntryRequest{
			UserID:      userID,
			Amount:      purchase.TotalZCoin,
			Kind:        model.TransactionKindRefund,
			Description: fmt.Sprintf("Purchase %s cancelled, refund", purchase.PurchaseNo),
			PurchaseID:  &purchase.ID,
		}); err != nil {
			return err
		}
		return s.catalogRepo.AdjustStock(ctx, tx, purchase.CommodityID, purchase.Quantity)
	})
	if err != nil {
		return nil, err
	}

	purchase.Status = model.PurchaseStatusCancelled
	s.log.WithFields(logrus.Fields{"purchase_no": purchase.PurchaseNo, "user_id": userID}).Info("商品兑换已取消并退款")
	return purchase, nil
}

func (s *SettlementService) ListSwaps(ctx context.Context, userID int64, page, pageSize int) ([]*model.SwapRequest, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.swapRepo.ListByRequester(ctx, userID, page, pageSize)
}

func (s *SettlementService) refundGuard(ctx context.Context, tx *gorm.DB, swapID, purchaseID *int64) error {
	exists, err := s.transactionRepo.ExistsRefund(ctx, tx, swapID, purchaseID)
	if err != nil {
		return fmt.Errorf("check refund: %w", err)
	}
	if exists {
		return ErrAlreadyRefunded
	}
	return nil
}

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrBookNotFound):
		return ErrBookNotFound
	case errors.Is(err, repository.ErrSwapNotFound):
		return ErrSwapNotFound
	case errors.Is(err, repository.ErrCommodityNotFound):
		return ErrCommodityNotFound
	case errors.Is(err, repository.ErrPurchaseNotFound):
		return ErrPurchaseNotFound
	case errors.Is(err, repository.ErrStockNotEnough):
		return ErrOutOfStock
	case errors.Is(err, repository.ErrSwapStatusInvalid), errors.Is(err, repository.ErrPurchaseStatusInvalid):
		return ErrInvalidState
	}
	return err
}
