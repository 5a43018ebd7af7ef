// Package handler contains the HTTP handlers for the giveaway site.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, cookies)
// 2. Call the service layer
// 3. Write the HTTP response (status code, cookies, rendered page)
//
// Handlers hold no business rules: they are the glue between HTTP and the
// GiveawayService.
package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/solwinner/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists the pages; each is parsed together with base.html.
var pageNames = []string{"home", "dashboard", "entered", "admin", "error"}

var templateFuncs = template.FuncMap{
	"iso": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return model.FormatTime(t)
	},
	"avatarURL": func(id string, hash *string) string {
		if hash == nil || *hash == "" {
			return ""
		}
		return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", id, *hash)
	},
}

// pages holds the parsed templates so they are compiled once at startup.
//
// html/template escapes everything we interpolate, so a display name like
// "<script>" is shown as text, never executed.
type pages struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

func newPages(logger *slog.Logger) (*pages, error) {
	p := &pages{
		templates: make(map[string]*template.Template, len(pageNames)),
		logger:    logger,
	}

	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		p.templates[name] = tmpl
	}

	return p, nil
}

// render executes a page into a buffer first, so a template error can still
// become a clean 500 instead of a half-written page.
func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := p.templates[name]
	if !ok {
		p.logger.Error("unknown page template", slog.String("page", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		p.logger.Error("failed to render template",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		p.logger.Debug("client went away while writing page", slog.String("error", err.Error()))
	}
}
