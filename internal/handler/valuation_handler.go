package handler

import (
	"strconv"

	"bookswap/internal/service"
	"bookswap/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CalculateRequest 估值请求，manual_zcoin 仅管理员可用
type CalculateRequest struct {
	BookID         *int64           `json:"book_id"`
	Category       string           `json:"category"`
	Condition      string           `json:"condition"`
	CoverType      string           `json:"cover_type" binding:"omitempty,oneof=hardcover paperback dust_jacket no_cover"`
	HasImages      bool             `json:"has_images"`
	HasDustJacket  bool             `json:"has_dust_jacket"`
	IsFirstEdition bool             `json:"is_first_edition"`
	IsSigned       bool             `json:"is_signed"`
	ManualZCoin    *decimal.Decimal `json:"manual_zcoin"`
	Notes          string           `json:"notes" binding:"max=255"`
}

// Calculate 书籍 ZCoin 估值
// POST /api/v1/valuation/calculate
func (h *Handler) Calculate(c *gin.Context) {
	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if req.ManualZCoin != nil && !isAdmin(c) {
		response.Forbidden(c, "manual zcoin override requires admin role")
		return
	}

	result, err := h.valuation.Calculate(c.Request.Context(), nil, service.ValuationInput{
		Category:       req.Category,
		Condition:      req.Condition,
		CoverType:      req.CoverType,
		HasImages:      req.HasImages,
		HasDustJacket:  req.HasDustJacket,
		IsFirstEdition: req.IsFirstEdition,
		IsSigned:       req.IsSigned,
		ManualOverride: req.ManualZCoin,
		BookID:         req.BookID,
		Actor:          currentUser(c),
		Notes:          req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

// GetValuationLog 查询一次估值记录
// GET /api/v1/admin/valuation/logs/:id
func (h *Handler) GetValuationLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	entry, err := h.valuation.GetLog(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, entry)
}

// GetSettings 当前生效的估值参数
// GET /api/v1/admin/valuation/settings
func (h *Handler) GetSettings(c *gin.Context) {
	response.Success(c, h.valuation.Settings().Current())
}

// UpdateSettings 发布新版本估值参数，未提供的字段沿用当前值
// PUT /api/v1/admin/valuation/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req service.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	next, err := h.valuation.Settings().Update(c.Request.Context(), req, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, next)
}

// ReloadSettings 从数据库重新加载参数，多实例部署时由其他实例更新后调用
// POST /api/v1/admin/valuation/settings/reload
func (h *Handler) ReloadSettings(c *gin.Context) {
	if err := h.valuation.Settings().Reload(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"version": h.valuation.Settings().Current().Version})
}
