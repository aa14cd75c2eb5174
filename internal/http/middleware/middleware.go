// Package middleware holds the request wrappers shared by every route: the
// signed-in account loader, the login and admin guards and the access log.
package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"evidence-hub/internal/db"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"go.uber.org/zap"
)

// AdminDeniedMessage is flashed when a signed-in account is turned away from /admin/.
const AdminDeniedMessage = "Access denied. Only the designated administrator can access the admin panel."

type ctxKey int

const userKey ctxKey = iota

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the signed-in account, or nil for anonymous requests.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

type UserStore interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// LoadUser resolves the session's account and stores it in the request context.
// Sessions pointing at a deleted or deactivated account are treated as anonymous.
func LoadUser(users UserStore, sessions *security.SessionStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessions.UserID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.GetUserByID(r.Context(), id)
			switch {
			case errors.Is(err, db.ErrNotFound):
			case err != nil:
				log.Error("failed to load session user", zap.Int("user_id", id), zap.Error(err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			case user.IsActive:
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin sends anonymous requests to the login page, remembering where they
// were headed.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			http.Redirect(w, r, "/login/?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminAccess is the allow-list for the administrative interface.
type AdminAccess struct {
	Usernames []string
	FullNames []string
}

// Allowed reports whether u may open the administrative interface. Only active
// staff accounts qualify; superusers always may, other staff must be allow-listed.
func (a AdminAccess) Allowed(u *models.User) bool {
	if !CanUseAdmin(u) {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, name := range a.Usernames {
		if name == u.Username {
			return true
		}
	}
	full := u.FullName()
	if full == "" {
		return false
	}
	for _, name := range a.FullNames {
		if strings.TrimSpace(name) == full {
			return true
		}
	}
	return false
}

// CanUseAdmin reports whether u is an active staff or superuser account. The
// administrative pages are closed to everyone else whatever the allow-list says.
func CanUseAdmin(u *models.User) bool {
	return u != nil && u.IsActive && (u.IsStaff || u.IsSuperuser)
}

// AdminGuard turns signed-in accounts outside the allow-list away from /admin/.
// Anonymous requests pass; the admin pages send them to the login page themselves.
func AdminGuard(access AdminAccess, sessions *security.SessionStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/admin/") || strings.HasPrefix(r.URL.Path, "/admin/login") {
				next.ServeHTTP(w, r)
				return
			}
			user := UserFrom(r.Context())
			if user != nil && !access.Allowed(user) {
				log.Info("admin panel access denied", zap.String("username", user.Username), zap.String("path", r.URL.Path))
				if err := sessions.AddFlash(w, r, security.LevelError, AdminDeniedMessage); err != nil {
					log.Warn("failed to save flash", zap.Error(err))
				}
				http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestLogger writes one access log line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", ClientIP(r)),
			)
		})
	}
}

// ClientIP is the host part of the connection's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
