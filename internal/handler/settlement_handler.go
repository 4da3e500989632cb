package handler

import (
	"bookswap/internal/service"
	"bookswap/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateSwapRequest 提交一本书换取目录中的书
type CreateSwapRequest struct {
	RequestedBookID int64  `json:"requested_book_id" binding:"required,gt=0"`
	Title           string `json:"title" binding:"required,max=255"`
	Author          string `json:"author" binding:"max=255"`
	Category        string `json:"category"`
	Condition       string `json:"condition"`
	CoverType       string `json:"cover_type" binding:"omitempty,oneof=hardcover paperback dust_jacket no_cover"`
	HasImages       bool   `json:"has_images"`
	HasDustJacket   bool   `json:"has_dust_jacket"`
	IsFirstEdition  bool   `json:"is_first_edition"`
	IsSigned        bool   `json:"is_signed"`
}

// CreateSwap 创建换书申请并扣除所需 ZCoin
// POST /api/v1/swap/create
func (h *Handler) CreateSwap(c *gin.Context) {
	var req CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	swap, err := h.settlement.CreateSwap(c.Request.Context(), service.SwapInput{
		UserID:          currentUser(c),
		RequestedBookID: req.RequestedBookID,
		OfferedTitle:    req.Title,
		OfferedAuthor:   req.Author,
		Category:        req.Category,
		Condition:       req.Condition,
		CoverType:       req.CoverType,
		HasImages:       req.HasImages,
		HasDustJacket:   req.HasDustJacket,
		IsFirstEdition:  req.IsFirstEdition,
		IsSigned:        req.IsSigned,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, swap)
}

type swapActionRequest struct {
	SwapID int64  `json:"swap_id" binding:"required,gt=0"`
	Notes  string `json:"notes" binding:"max=255"`
}

// CancelSwap 申请人撤回待审核的换书申请
// POST /api/v1/swap/cancel
func (h *Handler) CancelSwap(c *gin.Context) {
	var req swapActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	swap, err := h.settlement.CancelSwap(c.Request.Context(), req.SwapID, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, swap)
}

// ListSwaps 当前用户的换书申请
// GET /api/v1/swap/list
func (h *Handler) ListSwaps(c *gin.Context) {
	page, pageSize := pageParams(c)

	list, total, err := h.settlement.ListSwaps(c.Request.Context(), currentUser(c), page, pageSize)
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

// ApproveSwap 管理员通过换书申请
// POST /api/v1/admin/swap/approve
func (h *Handler) ApproveSwap(c *gin.Context) {
	var req swapActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	swap, err := h.settlement.ApproveSwap(c.Request.Context(), req.SwapID, currentUser(c), req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, swap)
}

// RejectSwap 管理员拒绝换书申请并退款
// POST /api/v1/admin/swap/reject
func (h *Handler) RejectSwap(c *gin.Context) {
	var req swapActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	swap, err := h.settlement.RejectSwap(c.Request.Context(), req.SwapID, currentUser(c), req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, swap)
}

type createPurchaseRequest struct {
	CommodityID int64 `json:"commodity_id" binding:"required,gt=0"`
	Quantity    int   `json:"quantity" binding:"required,gte=1,lte=100"`
}

// CreatePurchase 用 ZCoin 兑换商品
// POST /api/v1/purchase/create
func (h *Handler) CreatePurchase(c *gin.Context) {
	var req createPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	purchase, err := h.settlement.CreatePurchase(c.Request.Context(), currentUser(c), req.CommodityID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, purchase)
}

// CancelPurchase 取消兑换并退款
// POST /api/v1/purchase/cancel
func (h *Handler) CancelPurchase(c *gin.Context) {
	var req struct {
		PurchaseID int64 `json:"purchase_id" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	purchase, err := h.settlement.CancelPurchase(c.Request.Context(), req.PurchaseID, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, purchase)
}
