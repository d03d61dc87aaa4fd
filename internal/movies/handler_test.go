package movies

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/bunny"
)

type fakeStore struct {
	movies map[uuid.UUID]models.Movie
	err    error
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.movies[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeStore) List(_ context.Context, _ ListFilter) ([]models.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Movie{}
	for _, m := range f.movies {
		out = append(out, m)
	}
	return out, nil
}

func newRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	signer := bunny.NewSigner(bunny.Config{SigningKey: "k", MaxTTL: time.Hour}).
		WithClock(func() time.Time { return time.Unix(1700000000, 0) })
	h := NewHandler(store, signer, "vz-private.b-cdn.net", 3600, nil)
	r := gin.New()
	r.GET("/movies", h.List)
	r.GET("/movies/:id", h.Get)
	return r
}

type movieBody struct {
	Success bool         `json:"success"`
	Data    models.Movie `json:"data"`
	Error   string       `json:"error"`
}

func TestGetSignsPrivateMediaOnly(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{movies: map[uuid.UUID]models.Movie{id: {
		ID:           id,
		Title:        "Nosferatu",
		ThumbnailURL: "https://vz-private.b-cdn.net/1/v/thumbnail.jpg",
		PreviewURL:   "https://public.example.com/preview.webp",
	}}}

	w := httptest.NewRecorder()
	newRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/movies/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body movieBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Contains(t, body.Data.ThumbnailURL, "thumbnail.jpg?token=")
	assert.Contains(t, body.Data.ThumbnailURL, "&expires=1700003600")
	assert.Equal(t, "https://public.example.com/preview.webp", body.Data.PreviewURL)
}

func TestGetErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		store  *fakeStore
		status int
	}{
		{"bad id", "/movies/not-a-uuid", &fakeStore{}, http.StatusBadRequest},
		{"missing", "/movies/" + uuid.NewString(), &fakeStore{}, http.StatusNotFound},
		{"store failure", "/movies/" + uuid.NewString(), &fakeStore{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tt.store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestList(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{movies: map[uuid.UUID]models.Movie{id: {ID: id, Title: "M"}}}

	w := httptest.NewRecorder()
	newRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/movies?category=Drama", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.Movie `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, id, body.Data[0].ID)
}
