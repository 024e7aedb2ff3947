package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/crash-ph/admin-console/internal/session"
	"github.com/crash-ph/admin-console/models"
	"github.com/crash-ph/admin-console/web"
	"github.com/rs/zerolog"
)

// Page names.
const (
	PageLogin        = "login"
	PageOffices      = "offices"
	PageOfficeForm   = "office_form"
	PageMap          = "map"
	PageManualReport = "manual_report"
	PageProfile      = "profile"
)

var pageNames = []string{PageLogin, PageOffices, PageOfficeForm, PageMap, PageManualReport, PageProfile}

// Page is the data every template receives.
type Page struct {
	Title       string
	Nav         string
	Session     *session.Session
	Notice      string
	Error       string
	FieldErrors FieldErrors
	Form        any
	Data        any
}

// Renderer executes the console's HTML pages.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer(basePath string) (*Renderer, error) {
	funcs := template.FuncMap{
		"path": func(p string) string { return JoinPath(basePath, p) },
		"fieldError": func(errs FieldErrors, name string) string {
			return errs[name]
		},
		"coord": func(c models.Coordinate) string {
			if !c.Valid() {
				return ""
			}
			return fmt.Sprintf("%.6f", c.Float())
		},
		"json": func(v any) (template.JS, error) {
			data, err := json.Marshal(v)
			return template.JS(data), err
		},
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(web.Templates(),
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render writes page name with status. The page is rendered to a buffer
// first so a template error never leaves a half written response.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page *Page) {
	tmpl, ok := rd.pages[name]
	if !ok {
		zerolog.Ctx(r.Context()).Error().Str("page", name).Msg("unknown page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", name).Msg("failed to render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
