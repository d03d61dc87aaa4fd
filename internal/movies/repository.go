package movies

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/database"
)

const movieColumns = `id, title, slug, COALESCE(description,''), COALESCE(thumbnail_url,''), COALESCE(preview_url,''),
	library_id, video_id, video_path, rental_duration_hours, is_free_preview, category, tags, created_at, updated_at`

// Repository handles movie reads.
type Repository struct {
	db database.DB
}

// NewRepository creates a movies repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanMovie(row pgx.Row, m *models.Movie) error {
	return row.Scan(&m.ID, &m.Title, &m.Slug, &m.Description, &m.ThumbnailURL, &m.PreviewURL,
		&m.LibraryID, &m.VideoID, &m.VideoPath, &m.RentalDurationHours, &m.IsFreePreview, &m.Category, &m.Tags,
		&m.CreatedAt, &m.UpdatedAt)
}

// GetByID returns a movie by ID, or nil if it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = $1`
	var m models.Movie
	if err := scanMovie(r.db.QueryRow(ctx, q, id), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	Category string
	Limit    int
	Offset   int
}

// List returns movies ordered by title.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies
		WHERE ($1 = '' OR category = $1)
		ORDER BY title ASC LIMIT $2 OFFSET $3`
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, q, f.Category, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Movie{}
	for rows.Next() {
		var m models.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
