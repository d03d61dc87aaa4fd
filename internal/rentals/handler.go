package rentals

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/internal/worker"
	"github.com/super-videotheque/backend/pkg/response"
)

// RentalService is the rental lifecycle behind the handler.
type RentalService interface {
	RentOrReuse(ctx context.Context, movieID uuid.UUID, email, code string) (*Result, error)
	GetRental(ctx context.Context, id uuid.UUID) (*Result, error)
}

// CodeLookup lists rentals bound to a license code.
type CodeLookup interface {
	ListByCode(ctx context.Context, code string) ([]models.Rental, error)
}

// Sweeper runs one housekeeping pass.
type Sweeper interface {
	RunOnce(ctx context.Context) (worker.Report, error)
}

// CreateRentalRequest is the body for POST /rentals.
type CreateRentalRequest struct {
	MovieID       string `json:"movie_id" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	PayhipCode    string `json:"payhip_code" binding:"required"`
}

// Handler handles rental HTTP endpoints.
type Handler struct {
	svc     RentalService
	lookup  CodeLookup
	sweeper Sweeper
	logger  *zap.Logger
}

// NewHandler creates a rentals handler. sweeper may be nil.
func NewHandler(svc RentalService, lookup CodeLookup, sweeper Sweeper, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, lookup: lookup, sweeper: sweeper, logger: logger}
}

// Create handles POST /rentals. Returns 201 for a new rental and 200 when an active one is reused.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	movieID, err := uuid.Parse(req.MovieID)
	if err != nil {
		response.BadRequest(c, "invalid movie id")
		return
	}

	res, err := h.svc.RentOrReuse(c.Request.Context(), movieID, req.CustomerEmail, req.PayhipCode)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if res.Reused {
		response.OK(c, res)
		return
	}
	response.Created(c, res)
}

// Get handles GET /rentals/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid rental id")
		return
	}
	res, err := h.svc.GetRental(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, res)
}

// ListByCode handles GET /admin/rentals?code=. Admin only.
func (h *Handler) ListByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		response.BadRequest(c, "code is required")
		return
	}
	list, err := h.lookup.ListByCode(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("list rentals by code failed", zap.Error(err))
		response.Internal(c, "failed to list rentals")
		return
	}
	response.OK(c, list)
}

// Sweep handles POST /admin/rentals/sweep. Admin only.
func (h *Handler) Sweep(c *gin.Context) {
	if h.sweeper == nil {
		response.NotFound(c, "sweeper not configured")
		return
	}
	report, err := h.sweeper.RunOnce(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.logger.Error("manual sweep failed", zap.Error(err))
		response.Internal(c, "sweep failed")
		return
	}
	response.OK(c, report)
}
