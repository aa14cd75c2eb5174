package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"evidence-hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelcome(t *testing.T) {
	e := newEnv(t)

	rec := e.client().get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Misinformation Evidence Tracker")

	c, _ := e.signedIn("alice", models.RoleUser)
	rec = c.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))
}

func TestSignupRedirect(t *testing.T) {
	rec := newEnv(t).client().get("/Signup/")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/register/", rec.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	c := e.client()

	rec := c.get("/register/")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.post("/register/", url.Values{
		"username":  {"alice"},
		"full_name": {"Alice Liddell"},
		"email":     {"alice@example.com"},
		"role":      {"user"},
		"password1": {testPassword},
		"password2": {testPassword},
	})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))

	rec = c.get("/dashboard/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to MET! Start checking misinformation.")

	user, err := e.db.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.FirstName)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.False(t, user.IsStaff)
	assert.True(t, user.IsActive)

	rec = c.get("/register/")
	assert.Equal(t, http.StatusFound, rec.Code, "signed-in accounts skip registration")
}

func TestRegisterAdminRoleIsStaff(t *testing.T) {
	e := newEnv(t)
	rec := e.client().post("/register/", url.Values{
		"username":  {"boss"},
		"full_name": {"Big Boss"},
		"email":     {"boss@example.com"},
		"role":      {"admin"},
		"password1": {testPassword},
		"password2": {testPassword},
	})
	require.Equal(t, http.StatusFound, rec.Code)

	user, err := e.db.GetUserByUsername(context.Background(), "boss")
	require.NoError(t, err)
	assert.True(t, user.IsStaff)
	assert.False(t, user.IsSuperuser)
}

func TestRegisterInvalid(t *testing.T) {
	e := newEnv(t)
	e.createUser("alice", models.RoleUser)

	rec := e.client().post("/register/", url.Values{
		"username":  {"alice"},
		"full_name": {"Another Alice"},
		"email":     {"bad"},
		"role":      {"user"},
		"password1": {testPassword},
		"password2": {"different"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "A user with that username already exists.")
	assert.Contains(t, body, "Enter a valid email address.")

	n, err := e.db.Count(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoginRecordsOneEventPerSuccess(t *testing.T) {
	e := newEnv(t)
	e.createUser("alice", models.RoleUser)
	c := e.client()
	logins := func() int {
		n, err := e.db.Count(context.Background(), "login_events")
		require.NoError(t, err)
		return n
	}

	rec := c.post("/login/", url.Values{"username": {"alice"}, "password": {"wrong"}, "role": {"user"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a correct username and password.")
	assert.Equal(t, 0, logins())

	rec = c.post("/login/", url.Values{"username": {"alice"}, "password": {testPassword}, "role": {"admin"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Role mismatch. Please choose the correct role.")
	assert.Equal(t, 0, logins())

	rec = c.post("/login/", url.Values{
		"username": {"alice"},
		"password": {testPassword},
		"role":     {"user"},
		"next":     {"/statistics/"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/statistics/", rec.Header().Get("Location"))
	assert.Equal(t, 1, logins())

	events, err := e.db.ListLogins(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "192.0.2.1", events[0].IPAddress)
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	e := newEnv(t)
	e.createUser("alice", models.RoleUser)

	rec := e.client().post("/login/", url.Values{
		"username": {"alice"},
		"password": {testPassword},
		"role":     {"user"},
		"next":     {"//evil.example/"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))
}

func TestLoginThrottled(t *testing.T) {
	e := newEnv(t)
	c := e.client()
	form := url.Values{"username": {"nobody"}, "password": {"wrong"}, "role": {"user"}}

	var last int
	for i := 0; i < 6; i++ {
		last = c.post("/login/", form).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	e := newEnv(t)
	e.createUser("sleepy", models.RoleUser, func(u *models.User) { u.IsActive = false })

	rec := e.client().post("/login/", url.Values{"username": {"sleepy"}, "password": {testPassword}, "role": {"user"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a correct username and password.")
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	c, _ := e.signedIn("alice", models.RoleUser)

	rec := c.get("/logout/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Are you sure you want to log out?")

	rec = c.post("/logout/", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))

	rec = c.get("/login/")
	assert.Contains(t, rec.Body.String(), "You have been logged out successfully.")

	rec = c.get("/dashboard/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next=%2Fdashboard%2F", rec.Header().Get("Location"))
}
