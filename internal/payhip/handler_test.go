package payhip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/apperror"
)

type stubValidator struct {
	code, email string
	err         error
}

func (s *stubValidator) ValidateForCustomer(_ context.Context, code, email string) (*models.LicenseValidation, error) {
	s.code, s.email = code, email
	if s.err != nil {
		return nil, s.err
	}
	return &models.LicenseValidation{Valid: true, LicenseKey: code, Grant: ClassifyProduct("FILM_abc")}, nil
}

func serve(v CodeValidator, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payhip/validate", NewHandler(v, nil).Validate)
	req := httptest.NewRequest(http.MethodPost, "/payhip/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerValidate(t *testing.T) {
	v := &stubValidator{}
	w := serve(v, `{"code":"ABC","email":"a@b.co"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ABC", v.code)
	assert.Equal(t, "a@b.co", v.email)
	assert.Contains(t, w.Body.String(), `"access_type":"film"`)
	assert.Contains(t, w.Body.String(), `"access_value":"abc"`)
}

func TestHandlerValidateErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, serve(&stubValidator{}, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(&stubValidator{}, `{"code":"A","email":"bad"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(&stubValidator{err: apperror.ErrLicenseServiceUnavailable}, `{"code":"A"}`).Code)
	assert.Equal(t, http.StatusForbidden, serve(&stubValidator{err: apperror.ErrCodeAlreadyUsedByOtherIdentity}, `{"code":"A","email":"x@y.co"}`).Code)
}
