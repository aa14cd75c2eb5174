package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"evidence-hub/internal/config"
	"evidence-hub/internal/db"
	"evidence-hub/internal/http/handlers"
	"evidence-hub/internal/media"
	"evidence-hub/internal/security"
	"evidence-hub/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Init("sqlite3", filepath.Join(dir, "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	store, err := media.NewStore(filepath.Join(dir, "media"), zap.NewNop())
	require.NoError(t, err)
	views, err := web.NewRenderer()
	require.NoError(t, err)

	return Setup(config.Default(), handlers.Deps{
		DB:       database,
		Sessions: security.NewSessionStore("test-secret", false),
		Views:    views,
		Log:      zap.NewNop(),
	}, store)
}

func TestRoutes(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		method   string
		path     string
		status   int
		location string
	}{
		{"GET", "/", http.StatusOK, ""},
		{"GET", "/login/", http.StatusOK, ""},
		{"GET", "/register/", http.StatusOK, ""},
		{"GET", "/login", http.StatusMovedPermanently, "/login/"},
		{"GET", "/Signup/", http.StatusMovedPermanently, "/register/"},
		{"GET", "/dashboard/", http.StatusFound, "/login/?next=%2Fdashboard%2F"},
		{"GET", "/uploads/1/delete/", http.StatusFound, "/login/?next=%2Fuploads%2F1%2Fdelete%2F"},
		{"GET", "/uploads/abc/delete/", http.StatusNotFound, ""},
		{"DELETE", "/dashboard/", http.StatusMethodNotAllowed, ""},
		{"GET", "/nowhere/", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
}
