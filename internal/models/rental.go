package models

import (
	"time"

	"github.com/google/uuid"
)

// RentalStatus represents the rental lifecycle. Expired is terminal.
type RentalStatus string

const (
	RentalStatusActive  RentalStatus = "active"
	RentalStatusExpired RentalStatus = "expired"
)

// Rental is a time-boxed grant of streaming access to one movie for one customer.
type Rental struct {
	ID            uuid.UUID    `json:"id"`
	MovieID       uuid.UUID    `json:"movie_id"`
	CustomerEmail string       `json:"customer_email"`
	LicenseCode   string       `json:"license_code"`
	Status        RentalStatus `json:"status"`
	ExpiresAt     time.Time    `json:"expires_at"`
	LastSignedURL string       `json:"last_signed_url,omitempty"`
	ArchivedAt    *time.Time   `json:"archived_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsExpiredAt reports whether the rental's grant has lapsed at now, regardless of stored status.
func (r *Rental) IsExpiredAt(now time.Time) bool {
	return r.Status == RentalStatusExpired || !r.ExpiresAt.After(now)
}

// SecondsUntilExpiry returns whole seconds left at now, floored at zero.
func (r *Rental) SecondsUntilExpiry(now time.Time) int64 {
	secs := int64(r.ExpiresAt.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
