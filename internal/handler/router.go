package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, log *logrus.Logger, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	registerValidators(log)

	r := gin.New()

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1", IdentityMiddleware())
	{
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetBalance)
			wallet.GET("/transactions", h.ListTransactions)
			wallet.GET("/transactions/:no", h.GetTransaction)
		}

		payment := api.Group("/payment")
		{
			payment.GET("/packages", h.ListPackages)
			payment.POST("/quote", h.Quote)
			payment.POST("/verify", h.VerifyPayment)
			payment.GET("/list", h.ListPayments)
		}

		api.POST("/valuation/calculate", h.Calculate)

		swap := api.Group("/swap")
		{
			swap.POST("/create", h.CreateSwap)
			swap.POST("/cancel", h.CancelSwap)
			swap.GET("/list", h.ListSwaps)
		}

		purchase := api.Group("/purchase")
		{
			purchase.POST("/create", h.CreatePurchase)
			purchase.POST("/cancel", h.CancelPurchase)
		}

		admin := api.Group("/admin", AdminOnly())
		{
			admin.POST("/swap/approve", h.ApproveSwap)
			admin.POST("/swap/reject", h.RejectSwap)
			admin.GET("/valuation/settings", h.GetSettings)
			admin.PUT("/valuation/settings", h.UpdateSettings)
			admin.POST("/valuation/settings/reload", h.ReloadSettings)
			admin.GET("/valuation/logs/:id", h.GetValuationLog)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
