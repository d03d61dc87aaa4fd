// Package apperror defines the error kinds surfaced by the rental core.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an error so callers can present distinct messages.
type Kind string

const (
	KindLicenseInvalid                 Kind = "license_invalid"
	KindLicenseDisabled                Kind = "license_disabled"
	KindLicenseExpired                 Kind = "license_expired"
	KindLicenseServiceUnavailable      Kind = "license_service_unavailable"
	KindCodeAlreadyUsedByOtherIdentity Kind = "code_already_used_by_other_identity"
	KindEmailMismatch                  Kind = "email_mismatch"
	KindRentalNotFound                 Kind = "rental_not_found"
	KindMovieMetadataMissing           Kind = "movie_metadata_missing"
	KindMovieNotFound                  Kind = "movie_not_found"
	KindPersistenceFailure             Kind = "persistence_failure"
	KindRentalInProgress               Kind = "rental_in_progress"
	KindInternal                       Kind = "internal"
)

// Error is an error with a kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinel comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Persistence wraps a storage failure.
func Persistence(op string, cause error) *Error {
	return Wrap(KindPersistenceFailure, op, cause)
}

// Sentinels for errors.Is comparisons.
var (
	ErrLicenseInvalid                 = New(KindLicenseInvalid, "license not found or invalid")
	ErrLicenseDisabled                = New(KindLicenseDisabled, "license has been disabled")
	ErrLicenseExpired                 = New(KindLicenseExpired, "code has expired (valid 60 minutes after purchase)")
	ErrLicenseServiceUnavailable      = New(KindLicenseServiceUnavailable, "license service unavailable")
	ErrCodeAlreadyUsedByOtherIdentity = New(KindCodeAlreadyUsedByOtherIdentity, "code already used with another email")
	ErrEmailMismatch                  = New(KindEmailMismatch, "email does not match the purchase")
	ErrRentalNotFound                 = New(KindRentalNotFound, "rental not found")
	ErrMovieMetadataMissing           = New(KindMovieMetadataMissing, "movie metadata missing for rental")
	ErrMovieNotFound                  = New(KindMovieNotFound, "movie not found")
	ErrRentalInProgress               = New(KindRentalInProgress, "another rental request is in progress")
)

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// IsOperational reports whether err is an expected, user-facing condition.
// Non-operational errors are logged in full and reported opaquely.
func IsOperational(err error) bool {
	switch KindOf(err) {
	case KindPersistenceFailure, KindMovieMetadataMissing, KindInternal:
		return false
	}
	return true
}

// HTTPStatus maps a kind to the status code returned to clients.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindLicenseInvalid, KindRentalNotFound, KindMovieNotFound:
		return http.StatusNotFound
	case KindLicenseDisabled, KindLicenseExpired, KindCodeAlreadyUsedByOtherIdentity, KindEmailMismatch:
		return http.StatusForbidden
	case KindLicenseServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindRentalInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
