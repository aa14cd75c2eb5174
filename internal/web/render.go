// Package web holds the embedded page templates and renders them.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"evidence-hub/internal/forms"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
)

//go:embed templates
var files embed.FS

// Page is the data every template receives. Data carries the page specific values.
type Page struct {
	Title    string
	Path     string
	User     *models.User
	Messages []security.Message
	Data     any
}

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"fixed2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006 15:04")
	},
	"errs": func(e forms.Errors, field string) []string { return e.Get(field) },
	"media": func(rel string) string {
		if rel == "" {
			return ""
		}
		return "/media/" + rel
	},
	"month": func(m int) string { return time.Month(m).String() },
}

// NewRenderer parses every page under templates/ together with the shared layout.
func NewRenderer() (*Renderer, error) {
	layouts, err := fs.Glob(files, "templates/layout/*.html")
	if err != nil {
		return nil, err
	}
	pageFiles, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(files, append(layouts, file)...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes the named page into a buffer first so a template error never
// leaves a half written response behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
