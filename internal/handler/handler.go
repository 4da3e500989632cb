package handler

import (
	"errors"
	"net/http"
	"strconv"

	"bookswap/internal/repository"
	"bookswap/internal/service"
	"bookswap/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	ledger     *service.LedgerService
	topUp      *service.TopUpService
	valuation  *service.ValuationService
	settlement *service.SettlementService
	log        *logrus.Entry
}

// NewHandler 创建处理器实例
func NewHandler(
	ledger *service.LedgerService,
	topUp *service.TopUpService,
	valuation *service.ValuationService,
	settlement *service.SettlementService,
	log *logrus.Logger,
) *Handler {
	return &Handler{
		ledger:     ledger,
		topUp:      topUp,
		valuation:  valuation,
		settlement: settlement,
		log:        log.WithField("component", "HTTP"),
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

// writeError 把服务层错误翻译为响应码
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		verr         *service.VerificationError
		mismatch     *service.AmountMismatchError
		insufficient *service.InsufficientBalanceError
		creditErr    *service.CreditFailedError
	)

	switch {
	case errors.As(err, &verr):
		response.ErrorWithData(c, http.StatusOK, response.CodeVerificationFailed, verr.Error(), gin.H{
			"provider": verr.Outcome.Provider,
			"failure":  verr.Outcome.Failure,
			"reason":   verr.Outcome.Reason,
		})
	case errors.As(err, &mismatch):
		response.ErrorWithData(c, http.StatusOK, response.CodeAmountMismatch, mismatch.Error(), gin.H{
			"expected": mismatch.Expected.StringFixed(2),
			"received": mismatch.Received.StringFixed(2),
		})
	case errors.As(err, &insufficient):
		response.ErrorWithData(c, http.StatusOK, response.CodeInsufficientBalance, insufficient.Error(), gin.H{
			"balance":   insufficient.Balance.StringFixed(2),
			"required":  insufficient.Required.StringFixed(2),
			"shortfall": insufficient.Shortfall.StringFixed(2),
		})
	case errors.As(err, &creditErr):
		response.ErrorWithData(c, http.StatusInternalServerError, response.CodeCreditFailed, creditErr.Error(), gin.H{
			"reference": creditErr.Reference,
		})
	case errors.Is(err, service.ErrDuplicateReference):
		response.BusinessError(c, response.CodeDuplicateReference, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		response.BusinessError(c, response.CodeInvalidState, err.Error())
	case errors.Is(err, service.ErrAlreadyRefunded):
		response.BusinessError(c, response.CodeAlreadyRefunded, err.Error())
	case errors.Is(err, service.ErrOutOfStock):
		response.BusinessError(c, response.CodeOutOfStock, err.Error())
	case errors.Is(err, service.ErrBookUnavailable):
		response.BusinessError(c, response.CodeUnavailable, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrUnknownProvider),
		errors.Is(err, service.ErrPackageNotFound):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrSwapNotFound),
		errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrCommodityNotFound),
		errors.Is(err, service.ErrPurchaseNotFound),
		errors.Is(err, service.ErrTransactionNotFound),
		errors.Is(err, repository.ErrLogNotFound):
		response.NotFound(c, err.Error())
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString(ctxRequestID),
		}).Error("请求处理失败")
		response.ServerError(c, "internal server error")
	}
}
