package handler

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"bgv-dashboard/internal/model"
	"bgv-dashboard/web"
)

// NewRouter wires the full page tree with the shared middleware stack.
func NewRouter(h *Handlers, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"bgv-dashboard"}`))
	})

	// Static assets are embedded; the sub FS strips the source prefix.
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic("static assets missing from embed: " + err.Error())
	}
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages
	router.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Get("/", h.Home)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Route("/dashboard/recruiter", func(r chi.Router) {
			r.Use(h.requireRole(model.RoleRecruiter))
			r.Get("/", h.RecruiterDashboard)
			r.Post("/upload", h.UploadResume)
			r.Get("/bgv/{id}", h.Detail)
		})

		r.Route("/dashboard/candidate", func(r chi.Router) {
			r.Use(h.requireRole(model.RoleCandidate))
			r.Get("/", h.CandidateDashboard)
			r.Get("/bgv/{id}", h.Detail)
			r.Post("/bgv/{id}/documents", h.SubmitDocuments)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderer.Render(w, http.StatusNotFound, "error.html", errorPage{
			Message:  "Page not found",
			BackPath: "/",
		})
	})

	return router
}
