package models

import (
	"time"

	"github.com/google/uuid"
)

// Movie is a rentable title hosted on the CDN. Read-only from the rental core.
type Movie struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Slug                string    `json:"slug"`
	Description         string    `json:"description,omitempty"`
	ThumbnailURL        string    `json:"thumbnail_url,omitempty"`
	PreviewURL          string    `json:"preview_url,omitempty"`
	LibraryID           string    `json:"library_id"`
	VideoID             string    `json:"video_id"`
	VideoPath           string    `json:"video_path"` // e.g. /454374/1a31ba94-0843-44a8-9a6e-245878061b68.mp4
	RentalDurationHours int       `json:"rental_duration_hours"`
	IsFreePreview       bool      `json:"is_free_preview"`
	Category            string    `json:"category"`
	Tags                []string  `json:"tags"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
