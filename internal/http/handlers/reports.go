package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"evidence-hub/internal/db"
	"evidence-hub/internal/http/middleware"
	"evidence-hub/internal/models"
	"evidence-hub/internal/reports"
	"go.uber.org/zap"
)

const (
	firstReportYear = 2024
	lastReportYear  = 2028
	recentLoginRows = 50
)

type ReportHandler struct {
	base
}

func NewReportHandler(d Deps) *ReportHandler {
	return &ReportHandler{base: newBase(d)}
}

type ReportsData struct {
	*DashboardData
	Months        []int
	SelectedMonth int
	YearRange     []int
	SelectedYear  int
	AllUsers      []models.User
	RecentLogins  []models.LoginEvent
}

// selectedPeriod reads ?month= and ?year=, falling back to the current month and
// year for missing or out of range values.
func selectedPeriod(r *http.Request, now time.Time) (int, time.Month) {
	year, month := now.Year(), now.Month()
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = time.Month(m)
	}
	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y >= 1 && y <= 9999 {
		year = y
	}
	return year, month
}

func monthFilter(year int, month time.Month) db.ProjectFilter {
	var f db.ProjectFilter
	f.Since, f.Until = db.MonthRange(year, month)
	return f
}

func (h *ReportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if !user.IsAdmin() {
		redirect(w, r, "/dashboard/")
		return
	}
	ctx := r.Context()

	dash, err := collectDashboardData(ctx, h.db, user, "")
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	year, month := selectedPeriod(r, time.Now().UTC())
	if dash.MonthlyReport, err = h.db.ListProjects(ctx, monthFilter(year, month)); err != nil {
		h.serverError(w, r, err)
		return
	}

	data := &ReportsData{
		DashboardData: dash,
		SelectedMonth: int(month),
		SelectedYear:  year,
	}
	for m := 1; m <= 12; m++ {
		data.Months = append(data.Months, m)
	}
	for y := firstReportYear; y <= lastReportYear; y++ {
		data.YearRange = append(data.YearRange, y)
	}
	if data.AllUsers, err = h.db.ListUsers(ctx, ""); err != nil {
		h.serverError(w, r, err)
		return
	}
	if data.RecentLogins, err = h.db.ListLogins(ctx, "", recentLoginRows); err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "reports", "Reports", data)
}

// Export streams the selected month's report as a PDF download.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if !user.IsAdmin() {
		redirect(w, r, "/dashboard/")
		return
	}

	now := time.Now().UTC()
	year, month := selectedPeriod(r, now)
	projects, err := h.db.ListProjects(r.Context(), monthFilter(year, month))
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%d-%02d.pdf"`, year, int(month)))
	if err := reports.MonthlyPDF(w, year, month, projects, now); err != nil {
		h.log.Error("failed to write report", zap.Int("year", year), zap.Int("month", int(month)), zap.Error(err))
	}
}
