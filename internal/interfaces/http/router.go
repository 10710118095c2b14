package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/orris-inc/usdtvote/internal/infrastructure/config"
	"github.com/orris-inc/usdtvote/internal/interfaces/http/middleware"
	"github.com/orris-inc/usdtvote/internal/interfaces/http/routes"
	"github.com/orris-inc/usdtvote/internal/shared/constants"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// Router represents the HTTP router configuration
type Router struct {
	*Container
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(ctx context.Context, db *gorm.DB, cfg *config.Config, log logger.Interface) (*Router, error) {
	c, err := NewContainer(ctx, db, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Router{Container: c}, nil
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.log))
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))
	r.engine.Use(middleware.SecurityHeaders())

	r.engine.GET("/health", r.hdlrs.healthHandler.HealthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group(constants.APIVersionPrefix)

	var rateLimit gin.HandlerFunc
	if r.rateLimiter != nil {
		rateLimit = r.rateLimiter.Limit()
	}
	routes.SetupPaymentRoutes(api, &routes.PaymentRouteConfig{
		PaymentHandler: r.hdlrs.paymentHandler,
		RateLimit:      rateLimit,
	})
	routes.SetupAdminRoutes(api, &routes.AdminRouteConfig{
		AdminHandler: r.hdlrs.adminHandler,
		AdminToken:   r.adminToken,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// ReconcileOnce runs a single sweep pass outside the scheduler.
func (r *Router) ReconcileOnce(ctx context.Context) error {
	summary, err := r.ucs.reconcileUC.Execute(ctx)
	if err != nil {
		return err
	}
	r.log.Infow("reconcile pass finished",
		"scanned", summary.Scanned,
		"confirmed", summary.Confirmed,
		"rejected", summary.Rejected,
		"still_pending", summary.StillPending,
		"errors", summary.Errors,
		"credits_settled", summary.CreditsSettled,
	)
	return nil
}
