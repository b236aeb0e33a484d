package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/middleware"
	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
	"github.com/learnhub/learnhub-backend/internal/service"
	"github.com/learnhub/learnhub-backend/internal/validator"
)

type authService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.RefreshResponse, error)
	Me(ctx context.Context, p model.Principal) (*model.User, error)
	Logout(ctx context.Context, claims *service.Claims) error
}

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	auth authService
	log  zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth authService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log.With().Str("component", "auth_handler").Logger(),
	}
}

// Register godoc
// POST /api/v1/auth/register
// Creates a STUDENT account in the given tenant and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// Login godoc
// POST /api/v1/auth/login
// Authenticates by email and password and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Refresh godoc
// POST /api/v1/auth/refresh
// Exchanges a refresh token for a new access token in the same session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req model.RefreshRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Logout godoc
// POST /api/v1/auth/logout
// Revokes the session of the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Logged out."})
}

// Me godoc
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	user, err := h.auth.Me(c.Request.Context(), p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}
