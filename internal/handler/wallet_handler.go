package handler

import (
	"bookswap/pkg/response"

	"github.com/gin-gonic/gin"
)

// GetBalance 查询 ZCoin 余额，钱包不存在时自动创建
// GET /api/v1/wallet/balance
func (h *Handler) GetBalance(c *gin.Context) {
	userID := currentUser(c)

	wallet, err := h.ledger.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":    wallet.UserID,
		"balance":    wallet.Balance.StringFixed(2),
		"updated_at": wallet.UpdatedAt,
	})
}

// ListTransactions 流水，按时间倒序
// GET /api/v1/wallet/transactions?page=1&page_size=20
func (h *Handler) ListTransactions(c *gin.Context) {
	page, pageSize := pageParams(c)

	list, total, err := h.ledger.History(c.Request.Context(), currentUser(c), page, pageSize)
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

// GetTransaction 单条流水详情，只能查看自己的
// GET /api/v1/wallet/transactions/:no
func (h *Handler) GetTransaction(c *gin.Context) {
	trans, err := h.ledger.GetTransaction(c.Request.Context(), currentUser(c), c.Param("no"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, trans)
}
