package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	wrapped := Wrap(KindLicenseExpired, "expired upstream", errors.New("date too old"))
	assert.True(t, errors.Is(wrapped, ErrLicenseExpired))
	assert.False(t, errors.Is(wrapped, ErrLicenseInvalid))

	chained := fmt.Errorf("validate: %w", ErrEmailMismatch)
	assert.True(t, errors.Is(chained, ErrEmailMismatch))
	assert.Equal(t, KindEmailMismatch, KindOf(chained))
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("save signed url", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "save signed url: connection reset", err.Error())
}

func TestKindOfUnclassified(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.False(t, IsOperational(err))
}

func TestIsOperational(t *testing.T) {
	assert.True(t, IsOperational(ErrLicenseInvalid))
	assert.True(t, IsOperational(ErrRentalInProgress))
	assert.False(t, IsOperational(ErrMovieMetadataMissing))
	assert.False(t, IsOperational(Persistence("x", errors.New("y"))))
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindLicenseInvalid:                 http.StatusNotFound,
		KindRentalNotFound:                 http.StatusNotFound,
		KindMovieNotFound:                  http.StatusNotFound,
		KindLicenseDisabled:                http.StatusForbidden,
		KindLicenseExpired:                 http.StatusForbidden,
		KindCodeAlreadyUsedByOtherIdentity: http.StatusForbidden,
		KindEmailMismatch:                  http.StatusForbidden,
		KindLicenseServiceUnavailable:      http.StatusServiceUnavailable,
		KindRentalInProgress:               http.StatusConflict,
		KindPersistenceFailure:             http.StatusInternalServerError,
		KindMovieMetadataMissing:           http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}
