package router

import (
	"net/http"

	"evidence-hub/internal/config"
	"evidence-hub/internal/http/handlers"
	"evidence-hub/internal/http/middleware"
	"evidence-hub/internal/media"
	"evidence-hub/internal/security"
	"github.com/gorilla/mux"
)

func Setup(cfg *config.Config, deps handlers.Deps, store *media.Store) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)

	// Initialize handlers
	limiter := security.NewLoginLimiter(cfg.LoginRate.PerMinute, cfg.LoginRate.Burst)
	authHandler := handlers.NewAuthHandler(deps, limiter)
	dashboardHandler := handlers.NewDashboardHandler(deps, store, cfg.MaxUploadBytes())
	reportHandler := handlers.NewReportHandler(deps)
	fileHandler := handlers.NewFileHandler(deps, store)
	adminHandler := handlers.NewAdminHandler(deps)

	login := func(f http.HandlerFunc) http.Handler {
		return middleware.RequireLogin(f)
	}

	r.HandleFunc("/", authHandler.Welcome).Methods("GET")
	r.HandleFunc("/Signup/", authHandler.Signup).Methods("GET")
	r.HandleFunc("/register/", authHandler.Register).Methods("GET", "POST")
	r.HandleFunc("/login/", authHandler.Login).Methods("GET", "POST")
	r.HandleFunc("/logout/", authHandler.Logout).Methods("GET", "POST")

	r.Handle("/dashboard/", login(dashboardHandler.Dashboard)).Methods("GET", "POST")
	r.Handle("/project/", login(dashboardHandler.Project)).Methods("GET")
	r.Handle("/statistics/", login(dashboardHandler.Statistics)).Methods("GET")
	r.Handle("/profile/", login(dashboardHandler.Profile)).Methods("GET", "POST")
	r.Handle("/logo/", login(dashboardHandler.Logo)).Methods("GET")
	r.Handle("/poster/", login(dashboardHandler.Poster)).Methods("GET")
	r.Handle("/advertisement/", login(dashboardHandler.Advertisement)).Methods("GET")

	r.Handle("/reports/", login(reportHandler.Reports)).Methods("GET")
	r.Handle("/reports/export/", login(reportHandler.Export)).Methods("GET")

	r.Handle("/uploads/{id:[0-9]+}/delete/", login(fileHandler.DeleteUpload)).Methods("GET", "POST")
	r.PathPrefix("/media/").Handler(login(fileHandler.Media)).Methods("GET")

	r.HandleFunc("/admin/login/", adminHandler.Login).Methods("GET")
	r.HandleFunc("/admin/", adminHandler.Index).Methods("GET")
	r.HandleFunc("/admin/users/", adminHandler.Users).Methods("GET")
	r.HandleFunc("/admin/projects/", adminHandler.Projects).Methods("GET")
	r.HandleFunc("/admin/statistics/", adminHandler.Statistics).Methods("GET", "POST")
	r.HandleFunc("/admin/logins/", adminHandler.Logins).Methods("GET")

	access := middleware.AdminAccess{
		Usernames: cfg.AdminPanel.AllowedUsernames,
		FullNames: cfg.AdminPanel.AllowedFullNames,
	}
	r.Use(
		middleware.RequestLogger(deps.Log.Named("http")),
		middleware.LoadUser(deps.DB, deps.Sessions, deps.Log),
		middleware.AdminGuard(access, deps.Sessions, deps.Log),
	)

	return r
}
