package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLayout(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, "logout_confirm", Page{
		Title:    "Log out",
		User:     &models.User{Username: "alice", Role: models.RoleAdmin, IsStaff: true},
		Messages: []security.Message{{Level: security.LevelError, Text: "<b>careful</b>"}},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "<title>Log out · MET</title>")
	assert.Contains(t, body, "alice (Administrator)")
	assert.Contains(t, body, `href="/reports/"`)
	assert.Contains(t, body, "&lt;b&gt;careful&lt;/b&gt;")
}

func TestTemplatesExistForEveryPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	for _, name := range []string{
		"welcome", "register", "login", "logout_confirm", "dashboard", "project",
		"statistics", "reports", "upload_confirm_delete", "profile", "logo", "poster",
		"advertisement", "admin_index", "admin_users", "admin_projects", "admin_statistics",
		"admin_logins",
	} {
		assert.Contains(t, r.pages, name)
	}
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	assert.Error(t, r.Render(rec, http.StatusOK, "missing", Page{}))
	assert.Zero(t, rec.Body.Len())
}

func TestFuncs(t *testing.T) {
	assert.Equal(t, "12.50", funcs["fixed2"].(func(float64) string)(12.5))
	assert.Equal(t, "", funcs["date"].(func(time.Time) string)(time.Time{}))
	assert.Equal(t, "/media/uploads/a.png", funcs["media"].(func(string) string)("uploads/a.png"))
	assert.Equal(t, "March", funcs["month"].(func(int) string)(3))
}
