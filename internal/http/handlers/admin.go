package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"evidence-hub/internal/db"
	"evidence-hub/internal/forms"
	"evidence-hub/internal/http/middleware"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"go.uber.org/zap"
)

// AdminHandler serves the administrative interface under /admin/. The admin guard
// has already rejected signed-in accounts outside the allow-list; these handlers
// only send anonymous visitors to the login page.
type AdminHandler struct {
	base
}

func NewAdminHandler(d Deps) *AdminHandler {
	return &AdminHandler{base: newBase(d)}
}

type adminIndexPage struct {
	Users      int
	Projects   int
	Statistics int
	Logins     int
}

type adminUsersPage struct {
	Query string
	Users []models.User
}

type adminProjectsPage struct {
	Query    string
	Projects []models.Project
}

type adminStatisticsPage struct {
	Projects   []models.Project
	Statistics []models.Statistic
	Form       forms.Statistic
	Errors     forms.Errors
}

type adminLoginsPage struct {
	Query  string
	Logins []models.LoginEvent
}

// signedIn reports whether the request may go on. Anonymous visitors are sent to
// the login page and accounts without staff rights back to the dashboard.
func (h *AdminHandler) signedIn(w http.ResponseWriter, r *http.Request) bool {
	user := middleware.UserFrom(r.Context())
	if user == nil {
		redirect(w, r, "/login/?next="+url.QueryEscape(r.URL.Path))
		return false
	}
	if !middleware.CanUseAdmin(user) {
		h.log.Info("admin panel access denied", zap.String("username", user.Username), zap.String("path", r.URL.Path))
		h.flash(w, r, security.LevelError, middleware.AdminDeniedMessage)
		http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
		return false
	}
	return true
}

func query(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("q"))
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFrom(r.Context()) != nil {
		redirect(w, r, "/admin/")
		return
	}
	redirect(w, r, "/login/?next=/admin/")
}

func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn(w, r) {
		return
	}
	var page adminIndexPage
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"users", &page.Users},
		{"projects", &page.Projects},
		{"statistics", &page.Statistics},
		{"login_events", &page.Logins},
	} {
		n, err := h.db.Count(r.Context(), c.table)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		*c.dst = n
	}
	h.render(w, r, http.StatusOK, "admin_index", "Administration", page)
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn(w, r) {
		return
	}
	page := adminUsersPage{Query: query(r)}
	var err error
	if page.Users, err = h.db.ListUsers(r.Context(), page.Query); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_users", "Users", page)
}

func (h *AdminHandler) Projects(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn(w, r) {
		return
	}
	page := adminProjectsPage{Query: query(r)}
	var err error
	if page.Projects, err = h.db.SearchProjects(r.Context(), page.Query); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_projects", "Projects", page)
}

func (h *AdminHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn(w, r) {
		return
	}
	ctx := r.Context()
	var page adminStatisticsPage
	status := http.StatusOK

	if r.Method == http.MethodPost {
		form := forms.ParseStatistic(r)
		errs := form.Validate()
		if errs.Valid() {
			_, err := h.db.GetProject(ctx, form.ProjectID)
			switch {
			case errors.Is(err, db.ErrNotFound):
				errs.Add("project", "Select a valid choice. That choice is not one of the available choices.")
			case err != nil:
				h.serverError(w, r, err)
				return
			}
		}
		if errs.Valid() {
			stat := &models.Statistic{
				ProjectID:   form.ProjectID,
				MetricName:  form.MetricName,
				MetricValue: form.MetricValue,
				Notes:       form.Notes,
			}
			if err := h.db.CreateStatistic(ctx, stat); err != nil {
				h.serverError(w, r, err)
				return
			}
			h.log.Info("statistic recorded", zap.Int("project_id", stat.ProjectID), zap.String("metric", stat.MetricName))
			h.flash(w, r, security.LevelSuccess, "The statistic was added successfully.")
			redirect(w, r, "/admin/statistics/")
			return
		}
		page.Form, page.Errors = form, errs
		status = http.StatusBadRequest
	}

	var err error
	if page.Projects, err = h.db.ListProjects(ctx, db.ProjectFilter{}); err != nil {
		h.serverError(w, r, err)
		return
	}
	if page.Statistics, err = h.db.ListStatistics(ctx, 0); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, status, "admin_statistics", "Statistics", page)
}

func (h *AdminHandler) Logins(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn(w, r) {
		return
	}
	page := adminLoginsPage{Query: query(r)}
	var err error
	if page.Logins, err = h.db.ListLogins(r.Context(), page.Query, 0); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_logins", "Login log", page)
}
