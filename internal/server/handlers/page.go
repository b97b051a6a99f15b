package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/limitlens/limitlens/internal/output"
	"github.com/limitlens/limitlens/internal/refresh"
)

//go:embed templates/page.html.tmpl
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "templates/page.html.tmpl"))

// PageTitle is the heading of the status page.
const PageTitle = "Globalping API Rate Limits"

type pageOption struct {
	Millis   int64
	Label    string
	Selected bool
}

type pageData struct {
	Title          string
	LabelLimit     string
	LabelRemaining string
	LabelReset     string
	Placeholder    string
	Options        []pageOption
	DefaultMillis  int64
	ErrorPrefix    string
	Endpoint       string
}

// PageHandler serves the self-refreshing status page. The page carries no
// limit values; it loads them from /api/limits on open and on every tick.
type PageHandler struct {
	// DefaultInterval preselects the matching option. Values outside the
	// documented choices fall back to the 30 second default.
	DefaultInterval time.Duration
}

// NewPageHandler returns a page handler preselecting interval.
func NewPageHandler(interval time.Duration) *PageHandler {
	return &PageHandler{DefaultInterval: interval}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, h.data()); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *PageHandler) data() pageData {
	selected := refresh.DefaultInterval
	if h != nil {
		for _, iv := range refresh.Intervals {
			if iv.Duration == h.DefaultInterval {
				selected = iv.Duration
				break
			}
		}
	}

	options := make([]pageOption, 0, len(refresh.Intervals))
	for _, iv := range refresh.Intervals {
		options = append(options, pageOption{
			Millis:   iv.Millis(),
			Label:    iv.Label,
			Selected: iv.Duration == selected,
		})
	}

	return pageData{
		Title:          PageTitle,
		LabelLimit:     output.LabelLimit,
		LabelRemaining: output.LabelRemaining,
		LabelReset:     output.LabelReset,
		Placeholder:    refresh.Placeholder,
		Options:        options,
		DefaultMillis:  refresh.DefaultInterval.Milliseconds(),
		ErrorPrefix:    refresh.ErrorPrefix,
		Endpoint:       refresh.LimitsPath,
	}
}
