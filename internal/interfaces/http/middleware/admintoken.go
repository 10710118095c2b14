package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/usdtvote/internal/shared/constants"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
	"github.com/orris-inc/usdtvote/internal/shared/utils"
)

// AdminToken guards operator endpoints with a static shared secret.
type AdminToken struct {
	token  []byte
	logger logger.Interface
}

func NewAdminToken(token string, log logger.Interface) *AdminToken {
	return &AdminToken{token: []byte(token), logger: log}
}

// Require rejects requests without a matching X-Admin-Token. An empty configured token
// disables the protected routes entirely.
func (m *AdminToken) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(m.token) == 0 {
			utils.ErrorResponse(c, http.StatusNotFound, constants.ErrMsgResourceNotFound)
			c.Abort()
			return
		}

		provided := []byte(c.GetHeader(constants.HeaderAdminToken))
		if subtle.ConstantTimeCompare(provided, m.token) != 1 {
			m.logger.Warnw("rejected admin request", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			utils.ErrorResponse(c, http.StatusUnauthorized, constants.ErrMsgUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
