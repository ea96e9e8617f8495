package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/util"
	"bgv-dashboard/web"
)

// Pages rendered by the dashboard. Each page template is parsed
// together with the shared layout.
var pageNames = []string{
	"login.html",
	"recruiter_dashboard.html",
	"candidate_dashboard.html",
	"bgv_detail.html",
	"error.html",
}

// Renderer holds the parsed template sets.
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"classify":   model.ClassifyStatus,
		"formatDate": formatDate,
		"deref":      deref,
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(
			web.Templates,
			"templates/layout.html",
			"templates/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes the given page. Render failures degrade to a plain 500
// body; by then headers may already be out, so errors are only logged.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := r.pages[page]
	if !ok {
		r.logger.Error("unknown template requested", util.String("page", page))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		r.logger.Error("template execution failed",
			util.String("page", page),
			util.ErrorField(err),
		)
	}
}

// formatDate renders backend date strings for display. Unparseable
// values pass through untouched rather than erroring the page.
func formatDate(value string) string {
	if value == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
