package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/session"
	"bgv-dashboard/internal/util"
)

type contextKey string

const sessionContextKey contextKey = "session"

const (
	loginPath         = "/login"
	recruiterHomePath = "/dashboard/recruiter"
	candidateHomePath = "/dashboard/candidate"
)

// roleHome maps a role to its dashboard. Unknown roles land on login.
func roleHome(role string) string {
	switch role {
	case model.RoleRecruiter:
		return recruiterHomePath
	case model.RoleCandidate:
		return candidateHomePath
	default:
		return loginPath
	}
}

// sessionFrom returns the hydrated session, which may be nil for
// anonymous visitors.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey).(*session.Session)
	return sess
}

// withSession hydrates the browser session from the cookie and stores
// it in the request context. A read failure logs and proceeds
// unauthenticated; it never blocks the page.
func (h *Handlers) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session
		if cookie, err := r.Cookie(h.cfg.Session.CookieName); err == nil {
			sess, err = h.sessions.Hydrate(r.Context(), cookie.Value)
			if err != nil {
				h.logger.Warn("session hydration failed", util.ErrorField(err))
				sess = nil
			}
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route subtree: anonymous visitors go to login,
// authenticated users with the wrong role go to their own dashboard.
func (h *Handlers) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFrom(r.Context())
			if !sess.IsAuthenticated() {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			if sess.User.Role != role {
				http.Redirect(w, r, roleHome(sess.User.Role), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// evictAndRedirect is the single 401 path: the backend rejected the
// session's token, so its durable keys are removed, the cookie is
// cleared, and the browser goes back to login. Eviction is idempotent,
// so overlapping requests hitting this together are harmless.
func (h *Handlers) evictAndRedirect(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess != nil {
		h.auth.EvictSession(r.Context(), sess.ID)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// requestLogger logs each request through the shared zap logger.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
