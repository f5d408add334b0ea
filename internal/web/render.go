package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/logger"
	"github.com/teamtalk/talktome/internal/meeting"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// HomePageData is the template data for the folder and meeting overview.
type HomePageData struct {
	PageData
	Folders  []meeting.Folder
	Meetings []meeting.Meeting
	FolderID string
	Folder   *meeting.Folder
}

// DetailPageData is the template data for the meeting detail page.
type DetailPageData struct {
	PageData
	Meeting     *meeting.Meeting
	Folder      *meeting.Folder
	Folders     []meeting.Folder
	SummaryHTML template.HTML
	Edits       []meeting.TranscriptEdit
	Styles      []meeting.Style
	Languages   []string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime":  formatTime,
		"inputTime":   inputTime,
		"formatChars": formatChars,
		"deref":       deref,
		"hasValue":    hasValue,
		"icsTime":     meeting.FormatICSTime,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"home":   "home.html",
		"detail": "detail.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	log := logger.From(req.Context())

	t, ok := r.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if isHTMX(req) {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("template execution error")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders a page error with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	appErr := toAppError(req, err)

	if isHTMX(req) || wantsJSON(req) {
		writeError(w, req, appErr)
		return
	}

	r.renderPageStatus(w, req, appErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", appErr.Status),
			Version: r.version,
		},
		StatusCode: appErr.Status,
		Message:    appErr.Message,
	})
}

// apiError writes an API error: the bare message as text/plain unless the
// client asked for JSON or is HTMX.
func apiError(w http.ResponseWriter, req *http.Request, err error) {
	writeError(w, req, toAppError(req, err))
}

func writeError(w http.ResponseWriter, req *http.Request, appErr *errors.AppError) {
	status := appErr.Status
	message := appErr.Message

	// HTMX request: return HTML fragment
	if isHTMX(req) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request
	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(appErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

// toAppError coerces err and logs server-side failures with the request logger.
// Internal causes are logged, never rendered.
func toAppError(req *http.Request, err error) *errors.AppError {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternal(err)
	}
	if appErr.Status >= 500 {
		ev := logger.From(req.Context()).Error().Str("code", string(appErr.Code))
		if cause := appErr.Unwrap(); cause != nil {
			ev = ev.Err(cause)
		}
		ev.Msg(appErr.Message)
	}
	if appErr.Code == errors.ErrInternal {
		return &errors.AppError{Code: appErr.Code, Status: appErr.Status, Message: "internal error"}
	}
	return appErr
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func isHTMX(req *http.Request) bool {
	return req.Header.Get("HX-Request") == "true"
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderMarkdown converts markdown text to HTML using goldmark.
// goldmark drops raw HTML by default, so the output is safe to embed.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats t as "2006-01-02 15:04" UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// inputTime formats t for a datetime-local input; nil is "".
func inputTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04")
}

// formatChars formats an integer with comma thousands separators.
func formatChars(n int) string {
	if n < 0 {
		return "-" + formatChars(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// deref dereferences a pointer, returning the zero value if nil.
func deref(v any) any {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Zero(rv.Type().Elem()).Interface()
		}
		return rv.Elem().Interface()
	}
	return v
}

// hasValue checks if a pointer value is non-nil.
func hasValue(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return !rv.IsNil()
	}
	return true
}
