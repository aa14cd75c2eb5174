// Package handlers implements one handler per page of the site.
package handlers

import (
	"net/http"

	"evidence-hub/internal/db"
	"evidence-hub/internal/http/middleware"
	"evidence-hub/internal/security"
	"evidence-hub/internal/web"
	"go.uber.org/zap"
)

// Deps are the collaborators every handler shares.
type Deps struct {
	DB       *db.DB
	Sessions *security.SessionStore
	Views    *web.Renderer
	Log      *zap.Logger
}

type base struct {
	db       *db.DB
	sessions *security.SessionStore
	views    *web.Renderer
	log      *zap.Logger
}

func newBase(d Deps) base {
	return base{db: d.DB, sessions: d.Sessions, views: d.Views, log: d.Log}
}

// render drains pending flash messages into the page and writes it.
func (b *base) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	page := web.Page{
		Title:    title,
		Path:     r.URL.Path,
		User:     middleware.UserFrom(r.Context()),
		Messages: b.sessions.Flashes(w, r),
		Data:     data,
	}
	if err := b.views.Render(w, status, name, page); err != nil {
		b.serverError(w, r, err)
	}
}

func (b *base) flash(w http.ResponseWriter, r *http.Request, level security.Level, text string) {
	if err := b.sessions.AddFlash(w, r, level, text); err != nil {
		b.log.Warn("failed to save flash", zap.Error(err))
	}
}

func (b *base) serverError(w http.ResponseWriter, r *http.Request, err error) {
	b.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusFound)
}
