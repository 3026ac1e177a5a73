// ABOUTME: Local debug HTTP server exposing metrics, health, and a timeline snapshot
// ABOUTME: Renders timeline entry content as markdown for quick inspection in a browser

package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/coven-console/internal/conn"
	"github.com/2389/coven-console/internal/timeline"
)

// Config holds the debug server configuration.
type Config struct {
	Addr        string
	MetricsPath string // defaults to /metrics
}

// Server is the local debug HTTP server. It is read-only: it exposes the
// in-memory timeline and connection status but never sends to the backend.
type Server struct {
	config   Config
	manager  *conn.Manager
	gatherer prometheus.Gatherer
	markdown goldmark.Markdown
	logger   *slog.Logger
	httpSrv  *http.Server
}

// New creates a debug server over the given connection manager.
func New(cfg Config, manager *conn.Manager, gatherer prometheus.Gatherer) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		config:   cfg,
		manager:  manager,
		gatherer: gatherer,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   slog.Default().With("component", "webui"),
	}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/timeline", s.handleTimeline)

	s.httpSrv = &http.Server{
		Addr:              s.config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("debug server listening", "addr", s.config.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("debug server: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":        string(s.manager.Status()),
		"last_event_id": s.manager.LastEventID(),
		"loading":       s.manager.IsLoadingMessages(),
	})
}

var timelineTemplate = template.Must(template.New("timeline").Parse(`<!DOCTYPE html>
<html>
<head>
<title>coven-console timeline</title>
<style>
body { font-family: monospace; max-width: 56rem; margin: 2rem auto; }
.entry { border-left: 3px solid #ccc; padding: 0.25rem 1rem; margin: 0.75rem 0; }
.entry.error { border-color: #c33; }
.entry.pending { opacity: 0.6; }
.meta { color: #888; font-size: 0.8rem; }
pre { background: #f4f4f4; padding: 0.5rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>timeline</h1>
<p class="meta">status: {{.Status}} &middot; {{len .Entries}} entries</p>
{{range .Entries}}
<div class="entry {{.Class}}">
<div class="meta">{{.Meta}}</div>
{{.Body}}
</div>
{{end}}
</body>
</html>
`))

type timelineRow struct {
	Class string
	Meta  string
	Body  template.HTML
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	entries := s.manager.Events()

	rows := make([]timelineRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, timelineRow{
			Class: entryClass(e),
			Meta:  entryMeta(e),
			Body:  s.renderContent(e.Content),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := timelineTemplate.Execute(w, map[string]any{
		"Status":  s.manager.Status(),
		"Entries": rows,
	})
	if err != nil {
		s.logger.Error("rendering timeline page", "error", err)
	}
}

// renderContent converts an entry's markdown content to HTML. Render errors
// fall back to escaped plain text.
func (s *Server) renderContent(content string) template.HTML {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(content) + "</pre>")
	}
	return template.HTML(buf.String())
}

func entryClass(e timeline.Entry) string {
	switch {
	case e.Type == timeline.EntryError:
		return "error"
	case e.Pending:
		return "pending"
	default:
		return ""
	}
}

func entryMeta(e timeline.Entry) string {
	meta := string(e.Sender) + " / " + string(e.Type)
	if e.EventID != timeline.NoEventID {
		meta += fmt.Sprintf(" / event %d", e.EventID)
	}
	if e.Success != nil {
		if *e.Success {
			meta += " / ok"
		} else {
			meta += " / failed"
		}
	}
	return meta
}
