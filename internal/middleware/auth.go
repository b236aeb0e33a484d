package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
	"github.com/learnhub/learnhub-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeyPrincipal is the Gin context key for the caller identity.
	ContextKeyPrincipal = "principal"
)

// Authenticator resolves a bearer token into a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenStr string) (*service.Claims, model.Principal, error)
}

// RequireAuth validates the JWT from the Authorization header, falling back to
// the ?token= query parameter for WebSocket upgrades which cannot send headers.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, principal, err := auth.Authenticate(c.Request.Context(), tokenStr)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrSessionRevoked):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionRevoked)
			return
		case errors.Is(err, jwt.ErrTokenExpired):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
			return
		default:
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetPrincipal retrieves the authenticated caller from the Gin context.
func GetPrincipal(c *gin.Context) (model.Principal, bool) {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return model.Principal{}, false
	}
	p, ok := val.(model.Principal)
	return p, ok
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}
