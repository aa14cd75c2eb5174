package handlers

import (
	"errors"
	"net/http"
	"strings"

	"evidence-hub/internal/db"
	"evidence-hub/internal/forms"
	"evidence-hub/internal/http/middleware"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"go.uber.org/zap"
)

var roles = []models.Role{models.RoleAdmin, models.RoleUser}

type AuthHandler struct {
	base
	limiter *security.LoginLimiter
}

func NewAuthHandler(d Deps, limiter *security.LoginLimiter) *AuthHandler {
	return &AuthHandler{
		base:    newBase(d),
		limiter: limiter,
	}
}

type registerPage struct {
	Form   forms.Registration
	Errors forms.Errors
	Roles  []models.Role
}

type loginPage struct {
	Form   forms.Login
	Errors forms.Errors
	Roles  []models.Role
	Next   string
}

func (h *AuthHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFrom(r.Context()) != nil {
		redirect(w, r, "/dashboard/")
		return
	}
	h.render(w, r, http.StatusOK, "welcome", "Welcome", nil)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/register/", http.StatusMovedPermanently)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFrom(r.Context()) != nil {
		redirect(w, r, "/dashboard/")
		return
	}
	page := registerPage{Form: forms.Registration{Role: models.RoleUser}, Roles: roles}
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, "register", "Register", page)
		return
	}

	form := forms.ParseRegistration(r)
	errs, err := form.Validate(r.Context(), h.db)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	page.Form = form
	if !errs.Valid() {
		page.Errors = errs
		h.render(w, r, http.StatusOK, "register", "Register", page)
		return
	}

	hash, err := security.HashPassword(form.Password1)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	user := &models.User{
		Username:     form.Username,
		PasswordHash: hash,
		Email:        form.Email,
		FirstName:    form.FullName,
		Role:         form.Role,
		IsStaff:      form.Role == models.RoleAdmin,
		IsActive:     true,
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			page.Errors = forms.Errors{}
			page.Errors.Add("username", "A user with that username already exists.")
			h.render(w, r, http.StatusOK, "register", "Register", page)
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.log.Info("account registered", zap.String("username", user.Username), zap.String("role", string(user.Role)))

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.flash(w, r, security.LevelSuccess, "Welcome to MET! Start checking misinformation.")
	redirect(w, r, "/dashboard/")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFrom(r.Context()) != nil {
		redirect(w, r, "/dashboard/")
		return
	}
	page := loginPage{Form: forms.Login{Role: models.RoleUser}, Roles: roles, Next: r.URL.Query().Get("next")}
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, "login", "Sign in", page)
		return
	}

	form := forms.ParseLogin(r)
	page.Form = form
	page.Next = r.PostFormValue("next")

	ip := middleware.ClientIP(r)
	if !h.limiter.Allow(ip) {
		h.log.Warn("login throttled", zap.String("ip", ip))
		page.Errors = forms.Errors{}
		page.Errors.Add(forms.NonField, "Too many login attempts. Please wait a minute and try again.")
		h.render(w, r, http.StatusTooManyRequests, "login", "Sign in", page)
		return
	}

	if errs := form.Validate(); !errs.Valid() {
		page.Errors = errs
		h.render(w, r, http.StatusOK, "login", "Sign in", page)
		return
	}

	user, err := security.Authenticate(r.Context(), h.db, form.Username, form.Password)
	if errors.Is(err, security.ErrInvalidCredentials) {
		page.Errors = forms.Errors{}
		page.Errors.Add(forms.NonField, "Please enter a correct username and password. Note that both fields may be case-sensitive.")
		h.render(w, r, http.StatusOK, "login", "Sign in", page)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if user.Role != form.Role {
		h.flash(w, r, security.LevelError, "Role mismatch. Please choose the correct role.")
		h.render(w, r, http.StatusOK, "login", "Sign in", page)
		return
	}

	event := &models.LoginEvent{UserID: user.ID, IPAddress: ip, UserAgent: r.UserAgent()}
	if err := h.db.RecordLogin(r.Context(), event); err != nil {
		h.serverError(w, r, err)
		return
	}
	if err := h.sessions.Login(w, r, user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.log.Info("signed in", zap.String("username", user.Username), zap.String("ip", ip))

	if next := safeNext(page.Next); next != "" {
		redirect(w, r, next)
		return
	}
	redirect(w, r, "/dashboard/")
}

// safeNext accepts only local absolute paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	return next
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, "logout_confirm", "Log out", nil)
		return
	}
	if err := h.sessions.Logout(w, r); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.flash(w, r, security.LevelSuccess, "You have been logged out successfully.")
	redirect(w, r, "/login/")
}
