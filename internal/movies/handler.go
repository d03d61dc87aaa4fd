package movies

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/response"
)

// Store is the movie lookup used by the handler.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	List(ctx context.Context, f ListFilter) ([]models.Movie, error)
}

// AssetSigner signs pull zone asset URLs.
type AssetSigner interface {
	SignCDNAsset(rawURL string, ttlSeconds int64) (string, error)
}

// Handler serves the public catalog.
type Handler struct {
	store    Store
	signer   AssetSigner
	pullZone string
	mediaTTL int64
	logger   *zap.Logger
}

// NewHandler creates a movies handler. Thumbnail and preview URLs hosted on pullZoneHost
// are signed for mediaTTLSeconds; other URLs are returned untouched.
func NewHandler(store Store, signer AssetSigner, pullZoneHost string, mediaTTLSeconds int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, signer: signer, pullZone: strings.ToLower(pullZoneHost), mediaTTL: mediaTTLSeconds, logger: logger}
}

// List handles GET /movies?category=&limit=&offset=.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	list, err := h.store.List(c.Request.Context(), ListFilter{
		Category: strings.ToLower(strings.TrimSpace(c.Query("category"))),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.logger.Error("list movies failed", zap.Error(err))
		response.Internal(c, "failed to list movies")
		return
	}
	for i := range list {
		h.signMedia(&list[i])
	}
	response.OK(c, list)
}

// Get handles GET /movies/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid movie id")
		return
	}
	m, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get movie failed", zap.Error(err), zap.String("movie_id", id.String()))
		response.Internal(c, "failed to get movie")
		return
	}
	if m == nil {
		response.NotFound(c, "movie not found")
		return
	}
	h.signMedia(m)
	response.OK(c, m)
}

func (h *Handler) signMedia(m *models.Movie) {
	m.ThumbnailURL = h.sign(m.ThumbnailURL)
	m.PreviewURL = h.sign(m.PreviewURL)
}

func (h *Handler) sign(raw string) string {
	if raw == "" || h.pullZone == "" || h.signer == nil {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || strings.ToLower(u.Host) != h.pullZone {
		return raw
	}
	signed, err := h.signer.SignCDNAsset(raw, h.mediaTTL)
	if err != nil {
		h.logger.Warn("sign media url failed", zap.Error(err), zap.String("url", raw))
		return raw
	}
	return signed
}
