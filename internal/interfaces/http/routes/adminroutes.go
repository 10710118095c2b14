package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/usdtvote/internal/interfaces/http/handlers"
	"github.com/orris-inc/usdtvote/internal/interfaces/http/middleware"
)

// AdminRouteConfig holds dependencies for operator routes.
type AdminRouteConfig struct {
	AdminHandler *handlers.AdminHandler
	AdminToken   *middleware.AdminToken
}

// SetupAdminRoutes configures operator routes behind the admin token.
func SetupAdminRoutes(api *gin.RouterGroup, cfg *AdminRouteConfig) {
	admin := api.Group("/admin")
	admin.Use(cfg.AdminToken.Require())
	{
		admin.POST("/reconcile", cfg.AdminHandler.Reconcile)
	}
}
