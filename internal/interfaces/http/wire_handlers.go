package http

import (
	"time"

	"github.com/orris-inc/usdtvote/internal/interfaces/http/handlers"
	"github.com/orris-inc/usdtvote/internal/interfaces/http/middleware"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// allHandlers holds all HTTP handler instances used by the application.
type allHandlers struct {
	paymentHandler *handlers.PaymentHandler
	adminHandler   *handlers.AdminHandler
	healthHandler  *handlers.HealthHandler
}

// ============================================================
// Section 4: Handlers and middlewares
// ============================================================

func (c *Container) initHandlers() {
	handlerLog := logger.WithComponent("http")

	// Verification must finish inside the server's write timeout.
	verifyTimeout := c.cfg.Server.WriteTimeout - time.Second

	healthHandler := handlers.NewHealthHandler(nil)
	if sqlDB, err := c.db.DB(); err == nil {
		healthHandler = handlers.NewHealthHandler(sqlDB)
	} else {
		c.log.Warnw("health check has no database handle", "error", err)
	}

	c.hdlrs = &allHandlers{
		paymentHandler: handlers.NewPaymentHandler(c.ucs.verifyUC, c.ucs.createIntentUC, verifyTimeout, handlerLog),
		adminHandler:   handlers.NewAdminHandler(c.ucs.reconcileUC, handlerLog),
		healthHandler:  healthHandler,
	}

	if c.redis != nil && c.cfg.Server.IPRateLimit > 0 {
		c.rateLimiter = middleware.NewRateLimiter(c.redis, c.cfg.Server.IPRateLimit, time.Minute, handlerLog)
	}
	c.adminToken = middleware.NewAdminToken(c.cfg.Server.AdminToken, handlerLog)
}
