package payhip

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/response"
)

// CodeValidator validates a code, optionally for a given customer.
type CodeValidator interface {
	ValidateForCustomer(ctx context.Context, code, email string) (*models.LicenseValidation, error)
}

// ValidateRequest is the body for POST /payhip/validate.
type ValidateRequest struct {
	Code  string `json:"code" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

// Handler exposes license validation to the storefront.
type Handler struct {
	validator CodeValidator
	logger    *zap.Logger
}

// NewHandler creates a payhip handler.
func NewHandler(validator CodeValidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{validator: validator, logger: logger}
}

// Validate handles POST /payhip/validate.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.validator.ValidateForCustomer(c.Request.Context(), req.Code, req.Email)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, res)
}
