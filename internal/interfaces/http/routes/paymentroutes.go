package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/usdtvote/internal/interfaces/http/handlers"
)

// PaymentRouteConfig holds dependencies for payment routes.
type PaymentRouteConfig struct {
	PaymentHandler *handlers.PaymentHandler
	// RateLimit guards the public payment endpoints; nil disables it.
	RateLimit gin.HandlerFunc
}

// SetupPaymentRoutes configures payment routes.
func SetupPaymentRoutes(api *gin.RouterGroup, cfg *PaymentRouteConfig) {
	payments := api.Group("/payments")
	if cfg.RateLimit != nil {
		payments.Use(cfg.RateLimit)
	}
	{
		payments.POST("/intents", cfg.PaymentHandler.CreateIntent)
		payments.POST("/verify", cfg.PaymentHandler.VerifyPayment)
		payments.GET("/:tx_hash", cfg.PaymentHandler.GetPayment)
	}
}
