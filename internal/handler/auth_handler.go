package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"bgv-dashboard/internal/client"
	"bgv-dashboard/internal/config"
	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/service"
	"bgv-dashboard/internal/session"
	"bgv-dashboard/internal/util"
	"bgv-dashboard/internal/view"
)

// Handlers carries the dependencies shared by every page handler.
type Handlers struct {
	cfg      *config.Config
	renderer *view.Renderer
	sessions *session.Store
	auth     *service.AuthService
	bgv      *service.BGVService
	logger   *zap.Logger
}

func New(cfg *config.Config, renderer *view.Renderer, sessions *session.Store, auth *service.AuthService, bgv *service.BGVService, logger *zap.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		renderer: renderer,
		sessions: sessions,
		auth:     auth,
		bgv:      bgv,
		logger:   logger,
	}
}

type loginPage struct {
	User  *model.User // always nil; the layout hides the nav user block
	Email string
	Error string
}

// LoginPage renders the sign-in form. Signed-in visitors go straight to
// their dashboard.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess.IsAuthenticated() {
		http.Redirect(w, r, roleHome(sess.User.Role), http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, http.StatusOK, "login.html", loginPage{})
}

// Login authenticates against the backend and starts a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Render(w, http.StatusBadRequest, "login.html", loginPage{
			Error: "Invalid form submission",
		})
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		h.renderer.Render(w, http.StatusBadRequest, "login.html", loginPage{
			Email: email,
			Error: "Email and password are required",
		})
		return
	}

	id, user, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		h.renderer.Render(w, http.StatusUnauthorized, "login.html", loginPage{
			Email: email,
			Error: loginErrorMessage(err),
		})
		return
	}

	h.setSessionCookie(w, id)
	http.Redirect(w, r, roleHome(user.Role), http.StatusSeeOther)
}

// Logout ends the session and returns to the sign-in screen.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess.IsAuthenticated() {
		if err := h.auth.Logout(r.Context(), sess); err != nil {
			h.logger.Warn("logout failed", util.ErrorField(err))
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func loginErrorMessage(err error) string {
	if errors.Is(err, client.ErrUnauthorized) {
		return "Invalid email or password"
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.FieldError("email", "password")
	}
	return "Unable to sign in. Please try again."
}
