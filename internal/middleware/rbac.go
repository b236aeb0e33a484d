package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
)

// RequireRole lets the request through when the caller's role ranks at least min.
// Must run after RequireAuth.
func RequireRole(min model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !p.Role.AtLeast(min) {
			response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}
