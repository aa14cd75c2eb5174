package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"evidence-hub/internal/config"
	"evidence-hub/internal/db"
	"evidence-hub/internal/http/handlers"
	"evidence-hub/internal/http/router"
	"evidence-hub/internal/media"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"evidence-hub/internal/web"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const testPassword = "Correct-Horse-42"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

type env struct {
	t        *testing.T
	db       *db.DB
	handler  http.Handler
	mediaDir string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	database, err := db.Init("sqlite3", filepath.Join(dir, "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	mediaDir := filepath.Join(dir, "media")
	store, err := media.NewStore(mediaDir, zap.NewNop())
	require.NoError(t, err)
	views, err := web.NewRenderer()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.AdminPanel.AllowedUsernames = []string{"jona"}
	cfg.AdminPanel.AllowedFullNames = []string{"Jonalyn Rosell"}
	deps := handlers.Deps{
		DB:       database,
		Sessions: security.NewSessionStore("test-secret", false),
		Views:    views,
		Log:      zap.NewNop(),
	}
	return &env{t: t, db: database, handler: router.Setup(cfg, deps, store), mediaDir: mediaDir}
}

// createUser stores an active account whose password is testPassword.
func (e *env) createUser(username string, role models.Role, edit ...func(*models.User)) *models.User {
	e.t.Helper()
	hash, err := security.HashPassword(testPassword)
	require.NoError(e.t, err)
	u := &models.User{
		Username:     username,
		PasswordHash: hash,
		Email:        username + "@example.com",
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		Role:         role,
		IsStaff:      role == models.RoleAdmin,
		IsActive:     true,
	}
	for _, f := range edit {
		f(u)
	}
	require.NoError(e.t, e.db.CreateUser(context.Background(), u))
	return u
}

// client keeps the cookies a browser would.
type client struct {
	e       *env
	cookies map[string]*http.Cookie
}

func (e *env) client() *client {
	return &client{e: e, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.e.handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postMultipart(target string, fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	c.e.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(c.e.t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(c.e.t, err)
		_, err = io.Copy(fw, bytes.NewReader(content))
		require.NoError(c.e.t, err)
	}
	require.NoError(c.e.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

// login signs the client in through the login form.
func (c *client) login(username string, role models.Role) {
	c.e.t.Helper()
	rec := c.post("/login/", url.Values{
		"username": {username},
		"password": {testPassword},
		"role":     {string(role)},
	})
	require.Equal(c.e.t, http.StatusFound, rec.Code, rec.Body.String())
}

func (e *env) signedIn(username string, role models.Role, edit ...func(*models.User)) (*client, *models.User) {
	e.t.Helper()
	u := e.createUser(username, role, edit...)
	c := e.client()
	c.login(username, role)
	return c, u
}
