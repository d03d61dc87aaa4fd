package rentals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/internal/worker"
	"github.com/super-videotheque/backend/pkg/apperror"
)

type stubService struct {
	result *Result
	err    error
	gotID  uuid.UUID
	gotArg [2]string
}

func (s *stubService) RentOrReuse(_ context.Context, movieID uuid.UUID, email, code string) (*Result, error) {
	s.gotID = movieID
	s.gotArg = [2]string{email, code}
	return s.result, s.err
}

func (s *stubService) GetRental(_ context.Context, id uuid.UUID) (*Result, error) {
	s.gotID = id
	return s.result, s.err
}

type stubLookup []models.Rental

func (l stubLookup) ListByCode(context.Context, string) ([]models.Rental, error) { return l, nil }

type stubSweeper struct{ report worker.Report }

func (s stubSweeper) RunOnce(context.Context) (worker.Report, error) { return s.report, nil }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func newTestRouter(svc RentalService, lookup CodeLookup, sweeper Sweeper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, lookup, sweeper, nil)
	r := gin.New()
	r.POST("/rentals", h.Create)
	r.GET("/rentals/:id", h.Get)
	r.GET("/admin/rentals", h.ListByCode)
	r.POST("/admin/rentals/sweep", h.Sweep)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestCreateStatusCodes(t *testing.T) {
	movieID := uuid.New()
	rental := &models.Rental{ID: uuid.New(), MovieID: movieID, Status: models.RentalStatusActive}
	body := CreateRentalRequest{MovieID: movieID.String(), CustomerEmail: "alice@x.com", PayhipCode: "CODE"}

	t.Run("created", func(t *testing.T) {
		svc := &stubService{result: &Result{Rental: rental, SignedURL: "https://signed"}}
		w, env := do(t, newTestRouter(svc, nil, nil), http.MethodPost, "/rentals", body)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		assert.Equal(t, movieID, svc.gotID)
		assert.Equal(t, [2]string{"alice@x.com", "CODE"}, svc.gotArg)

		var res Result
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, "https://signed", res.SignedURL)
		assert.Equal(t, rental.ID, res.Rental.ID)
	})

	t.Run("reused", func(t *testing.T) {
		svc := &stubService{result: &Result{Rental: rental, SignedURL: "https://signed", Reused: true}}
		w, _ := do(t, newTestRouter(svc, nil, nil), http.MethodPost, "/rentals", body)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCreateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"missing fields", map[string]string{"movie_id": uuid.NewString()}},
		{"bad email", CreateRentalRequest{MovieID: uuid.NewString(), CustomerEmail: "nope", PayhipCode: "C"}},
		{"bad movie id", CreateRentalRequest{MovieID: "42", CustomerEmail: "a@b.co", PayhipCode: "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			w, env := do(t, newTestRouter(svc, nil, nil), http.MethodPost, "/rentals", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, uuid.Nil, svc.gotID, "service must not be called")
		})
	}
}

func TestCreateMapsErrorKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.ErrLicenseInvalid, http.StatusNotFound, "license_invalid"},
		{apperror.ErrLicenseDisabled, http.StatusForbidden, "license_disabled"},
		{apperror.ErrLicenseExpired, http.StatusForbidden, "license_expired"},
		{apperror.ErrLicenseServiceUnavailable, http.StatusServiceUnavailable, "license_service_unavailable"},
		{apperror.ErrCodeAlreadyUsedByOtherIdentity, http.StatusForbidden, "code_already_used_by_other_identity"},
		{apperror.ErrEmailMismatch, http.StatusForbidden, "email_mismatch"},
		{apperror.ErrMovieNotFound, http.StatusNotFound, "movie_not_found"},
		{apperror.ErrRentalInProgress, http.StatusConflict, "rental_in_progress"},
		{apperror.Persistence("create rental", errors.New("pq: secret detail")), http.StatusInternalServerError, ""},
	}
	body := CreateRentalRequest{MovieID: uuid.NewString(), CustomerEmail: "a@b.co", PayhipCode: "C"}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w, env := do(t, newTestRouter(&stubService{err: tt.err}, nil, nil), http.MethodPost, "/rentals", body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, env.Code)
			assert.NotContains(t, env.Error, "secret detail")
		})
	}
}

func TestGet(t *testing.T) {
	id := uuid.New()
	svc := &stubService{result: &Result{Rental: &models.Rental{ID: id, Status: models.RentalStatusExpired}}}
	w, env := do(t, newTestRouter(svc, nil, nil), http.MethodGet, "/rentals/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, svc.gotID)
	assert.NotContains(t, string(env.Data), "signed_url")

	w, _ = do(t, newTestRouter(&stubService{err: apperror.ErrRentalNotFound}, nil, nil), http.MethodGet, "/rentals/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, newTestRouter(&stubService{}, nil, nil), http.MethodGet, "/rentals/xyz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	list := stubLookup{{ID: uuid.New(), LicenseCode: "C"}}
	r := newTestRouter(&stubService{}, list, stubSweeper{report: worker.Report{Expired: 2, Purged: 1}})

	w, env := do(t, r, http.MethodGet, "/admin/rentals?code=C", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var rentals []models.Rental
	require.NoError(t, json.Unmarshal(env.Data, &rentals))
	assert.Len(t, rentals, 1)

	w, _ = do(t, r, http.MethodGet, "/admin/rentals", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodPost, "/admin/rentals/sweep", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"expired":2,"purged":1}`, string(env.Data))
}
