package auth

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/pkg/response"
	"github.com/super-videotheque/backend/pkg/utils"
)

// LoginRequest is the body for POST /admin/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler handles admin auth endpoints.
type Handler struct {
	passwordHash string
	jwt          *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler. A plain password is hashed once here so
// every login goes through bcrypt.
func NewHandler(password, passwordHash string, jwt *JWTService, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if passwordHash != "" {
		if err := utils.ValidateHash(passwordHash); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
	} else {
		if password == "" {
			return nil, fmt.Errorf("admin password not configured")
		}
		h, err := utils.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		passwordHash = h
	}
	return &Handler{passwordHash: passwordHash, jwt: jwt, logger: logger}, nil
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !utils.CheckPassword(req.Password, h.passwordHash) {
		h.logger.Warn("admin login failed", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid password")
		return
	}
	token, expires, err := h.jwt.Generate("admin", RoleAdmin)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, Role: RoleAdmin, ExpiresAt: expires})
}
