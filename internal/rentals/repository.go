package rentals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/database"
)

// ActivePairConstraint is the partial unique index allowing one active rental per (movie, customer).
const ActivePairConstraint = "uq_rentals_active_pair"

const rentalColumns = `id, movie_id, customer_email, license_code, status, expires_at, COALESCE(last_signed_url,''), archived_at, created_at, updated_at`

// Repository handles rental persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a rentals repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanRental(row pgx.Row, r *models.Rental) error {
	return row.Scan(&r.ID, &r.MovieID, &r.CustomerEmail, &r.LicenseCode, &r.Status, &r.ExpiresAt,
		&r.LastSignedURL, &r.ArchivedAt, &r.CreatedAt, &r.UpdatedAt)
}

func (r *Repository) findOne(ctx context.Context, q string, args ...any) (*models.Rental, error) {
	var rental models.Rental
	if err := scanRental(r.db.QueryRow(ctx, q, args...), &rental); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rental, nil
}

// FindByID returns a rental by ID, or nil if it does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	const q = `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	return r.findOne(ctx, q, id)
}

// FindLatestByCode returns the most recent rental created with code on any movie, or nil.
func (r *Repository) FindLatestByCode(ctx context.Context, code string) (*models.Rental, error) {
	const q = `SELECT ` + rentalColumns + ` FROM rentals WHERE license_code = $1 ORDER BY created_at DESC LIMIT 1`
	return r.findOne(ctx, q, code)
}

// FindActive returns the active rental for (movie, email), or nil. The row may be past its expiry.
func (r *Repository) FindActive(ctx context.Context, movieID uuid.UUID, email string) (*models.Rental, error) {
	const q = `SELECT ` + rentalColumns + ` FROM rentals
		WHERE movie_id = $1 AND customer_email = $2 AND status = $3
		ORDER BY expires_at DESC LIMIT 1`
	return r.findOne(ctx, q, movieID, email, models.RentalStatusActive)
}

// ListByCode returns every rental bound to code, newest first.
func (r *Repository) ListByCode(ctx context.Context, code string) ([]models.Rental, error) {
	const q = `SELECT ` + rentalColumns + ` FROM rentals WHERE license_code = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Rental{}
	for rows.Next() {
		var rental models.Rental
		if err := scanRental(rows, &rental); err != nil {
			return nil, err
		}
		list = append(list, rental)
	}
	return list, rows.Err()
}

// Create inserts a rental. A second active rental for the same pair fails with a
// unique violation on ActivePairConstraint.
func (r *Repository) Create(ctx context.Context, rental *models.Rental) error {
	const q = `INSERT INTO rentals (id, movie_id, customer_email, license_code, status, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, rental.MovieID, rental.CustomerEmail, rental.LicenseCode, rental.Status, rental.ExpiresAt).
		Scan(&rental.ID, &rental.CreatedAt, &rental.UpdatedAt)
}

// ExpireStaleForPair expires active rentals for (movie, email) whose expiry is at or before now.
func (r *Repository) ExpireStaleForPair(ctx context.Context, movieID uuid.UUID, email string, now time.Time) ([]uuid.UUID, error) {
	const q = `UPDATE rentals SET status = $1, updated_at = NOW()
		WHERE movie_id = $2 AND customer_email = $3 AND status = $4 AND expires_at <= $5
		RETURNING id`
	return r.collectIDs(ctx, q, models.RentalStatusExpired, movieID, email, models.RentalStatusActive, now)
}

// MarkExpired transitions an active rental to expired. Expired rows are left untouched.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE rentals SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	_, err := r.db.Exec(ctx, q, models.RentalStatusExpired, id, models.RentalStatusActive)
	return err
}

// SaveSignedURL stores the last URL minted for a rental.
func (r *Repository) SaveSignedURL(ctx context.Context, id uuid.UUID, signedURL string) error {
	const q = `UPDATE rentals SET last_signed_url = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, q, signedURL, id)
	return err
}

// ExpireDue expires up to limit active rentals whose expiry is at or before now and returns their IDs.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	const q = `UPDATE rentals SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM rentals WHERE status = $2 AND expires_at <= $3
			ORDER BY expires_at LIMIT $4 FOR UPDATE SKIP LOCKED
		)
		RETURNING id`
	return r.collectIDs(ctx, q, models.RentalStatusExpired, models.RentalStatusActive, now, limit)
}

// MarkArchived records when a rental was copied to the archive.
func (r *Repository) MarkArchived(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE rentals SET archived_at = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, q, at, id)
	return err
}

// PurgeExpiredBefore deletes expired rentals whose expiry is before cutoff. When
// requireArchived is set only archived rows are removed.
func (r *Repository) PurgeExpiredBefore(ctx context.Context, cutoff time.Time, requireArchived bool) (int64, error) {
	const q = `DELETE FROM rentals
		WHERE status = $1 AND expires_at < $2 AND (NOT $3 OR archived_at IS NOT NULL)`
	tag, err := r.db.Exec(ctx, q, models.RentalStatusExpired, cutoff, requireArchived)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) collectIDs(ctx context.Context, q string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
