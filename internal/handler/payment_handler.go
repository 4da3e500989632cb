package handler

import (
	"bookswap/internal/service"
	"bookswap/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// QuoteRequest 套餐与自定义金额二选一
type QuoteRequest struct {
	CoinPackageID *int64           `json:"coin_package_id"`
	CustomAmount  *decimal.Decimal `json:"custom_amount"`
}

// Quote 计算应付金额与可得 ZCoin，不产生任何数据
// POST /api/v1/payment/quote
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	quote, err := h.topUp.Quote(c.Request.Context(), service.QuoteRequest{
		CoinPackageID: req.CoinPackageID,
		CustomAmount:  req.CustomAmount,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"expected_amount": quote.ExpectedAmount.StringFixed(2),
		"zcoin_amount":    quote.ZCoinAmount.StringFixed(2),
		"coin_package_id": quote.CoinPackageID,
		"package_name":    quote.PackageName,
	})
}

// VerifyPaymentRequest 用户转账后提交参考号
type VerifyPaymentRequest struct {
	Provider      string           `json:"provider" binding:"required,provider"`
	Reference     string           `json:"reference" binding:"required,min=4,max=64"`
	AccountSuffix string           `json:"account_suffix" binding:"omitempty,account_suffix"`
	CoinPackageID *int64           `json:"coin_package_id"`
	CustomAmount  *decimal.Decimal `json:"custom_amount"`
}

// VerifyPayment 核验外部转账并入账 ZCoin
// POST /api/v1/payment/verify
//
// 核验失败、金额不符、参考号重复均不入账；核验通过但入账失败返回 500，需要人工处理。
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.topUp.VerifyAndCredit(c.Request.Context(), service.TopUpRequest{
		UserID:        currentUser(c),
		Provider:      req.Provider,
		Reference:     req.Reference,
		AccountSuffix: req.AccountSuffix,
		CoinPackageID: req.CoinPackageID,
		CustomAmount:  req.CustomAmount,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"success":     result.Success,
		"zcoin_added": result.ZCoinAdded.StringFixed(2),
		"amount_paid": result.AmountPaid.StringFixed(2),
		"new_balance": result.NewBalance.StringFixed(2),
		"payer":       result.Payer,
		"receipt_no":  result.ReceiptNo,
		"reference":   result.Reference,
	})
}

// ListPayments 当前用户的付款记录
// GET /api/v1/payment/list?page=1&page_size=20
func (h *Handler) ListPayments(c *gin.Context) {
	page, pageSize := pageParams(c)

	list, total, err := h.topUp.ListPayments(c.Request.Context(), currentUser(c), page, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListPackages 可购买的充值套餐
// GET /api/v1/payment/packages
func (h *Handler) ListPackages(c *gin.Context) {
	pkgs, err := h.topUp.Packages(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"list": pkgs})
}
