package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/note"
	"github.com/hpungsan/jot/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "notes" or "trash"
}

// ListPageData backs both the active list and the trash.
type ListPageData struct {
	PageData
	Items      []note.Note
	Pagination ops.Pagination
	Folders    []string
	Query      string
	Folder     string
	Kind       string
	Trash      bool
	StreamURL  string
}

// DetailPageData backs the single-note page.
type DetailPageData struct {
	PageData
	Note         *note.Note
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// responseMode is how a request wants its answer.
type responseMode int

const (
	modePage     responseMode = iota // full HTML document
	modeFragment                     // htmx swap: the "content" block only
	modeJSON
)

func negotiate(r *http.Request) responseMode {
	switch {
	case r.Header.Get("HX-Request") == "true":
		return modeFragment
	case strings.Contains(r.Header.Get("Accept"), "application/json"):
		return modeJSON
	}
	return modePage
}

// Renderer holds one parsed template set per page, each layered on the layout.
type Renderer struct {
	pages   map[string]*template.Template
	version string
	logger  zerolog.Logger
}

// NewRenderer parses layout.html plus every page template from templateFS.
func NewRenderer(templateFS fs.FS, version string, logger zerolog.Logger) *Renderer {
	funcs := template.FuncMap{
		"formatTime":    formatTime,
		"formatOptTime": formatOptTime,
		"opt":           opt,
		"noteTitle":     noteTitle,
		"countChars":    note.CountChars,
		"nextOffset":    func(p ops.Pagination) int { return p.Offset + p.Limit },
	}

	base := template.Must(template.New("layout").Funcs(funcs).ParseFS(templateFS, "layout.html"))

	r := &Renderer{
		pages:   make(map[string]*template.Template, 3),
		version: version,
		logger:  logger,
	}
	for _, name := range []string{"list", "detail", "error"} {
		t := template.Must(base.Clone())
		r.pages[name] = template.Must(t.ParseFS(templateFS, name+".html"))
	}
	return r
}

// page writes a named page. htmx requests get only its "content" block.
func (r *Renderer) page(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error().Str("template", name).Msg("unknown page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if negotiate(req) == modeFragment {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error().Err(err).Str("template", name).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, buf.Bytes())
}

// fail answers with the error in whatever form the request asked for.
// Internal errors are logged; their cause never reaches the client.
func (r *Renderer) fail(w http.ResponseWriter, req *http.Request, err error) {
	jErr := errors.As(err)
	if jErr.Code == errors.ErrInternal {
		r.logger.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
	}

	switch negotiate(req) {
	case modeFragment:
		writeHTML(w, jErr.Status, []byte(`<div class="error-message">`+template.HTMLEscapeString(jErr.Message)+`</div>`))
	case modeJSON:
		writeJSON(w, jErr.Status, map[string]any{
			"error": map[string]any{
				"code":    string(jErr.Code),
				"message": jErr.Message,
				"status":  jErr.Status,
			},
		})
	default:
		r.page(w, req, jErr.Status, "error", ErrorPageData{
			PageData:   PageData{Title: fmt.Sprintf("Error %d", jErr.Status), Version: r.version},
			StatusCode: jErr.Status,
			Message:    jErr.Message,
		})
	}
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// renderMarkdown converts note content to HTML.
// goldmark omits raw HTML unless told otherwise, so the result is safe to embed.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats epoch milliseconds as "2006-01-02 15:04" UTC.
func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

// formatOptTime is formatTime for optional timestamps; nil yields "".
func formatOptTime(ms *int64) string {
	if ms == nil {
		return ""
	}
	return formatTime(*ms)
}

func opt(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// noteTitle returns the title, else the first content line, else "(untitled)".
func noteTitle(n note.Note) string {
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	line, _, _ := strings.Cut(strings.TrimSpace(n.Content), "\n")
	if line = strings.TrimSpace(line); line != "" {
		if r := []rune(line); len(r) > 60 {
			return string(r[:60]) + "…"
		}
		return line
	}
	return "(untitled)"
}
