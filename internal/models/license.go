package models

import "time"

// LicenseStatus is the upstream state of a purchase code.
type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusDisabled LicenseStatus = "disabled"
)

// AccessScope is what a validated code unlocks.
type AccessScope string

const (
	// AccessScopeTime grants the whole catalog for a duration.
	AccessScopeTime AccessScope = "time"
	// AccessScopeFilm grants a single title.
	AccessScopeFilm AccessScope = "film"
	// AccessScopeCategory grants a single category.
	AccessScopeCategory AccessScope = "category"
)

// AccessTargetAll is the target of a catalog-wide grant.
const AccessTargetAll = "all"

// AccessGrant is the classification of a purchased product.
// DurationSeconds is set only for AccessScopeTime.
type AccessGrant struct {
	Scope           AccessScope `json:"access_type"`
	Target          string      `json:"access_value"`
	DurationSeconds *int64      `json:"duration_seconds,omitempty"`
}

// LicenseValidation is the normalized result of one license check.
type LicenseValidation struct {
	Valid       bool           `json:"success"`
	LicenseKey  string         `json:"license_key"`
	Status      LicenseStatus  `json:"status"`
	Email       string         `json:"email,omitempty"`
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name,omitempty"`
	PurchasedAt *time.Time     `json:"purchased_at,omitempty"`
	Grant       AccessGrant    `json:"access"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
