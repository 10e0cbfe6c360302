package server

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/zgpcy/cloud-metrics-exporter/internal/collector"
	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/fortune"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
)

//go:embed templates/index.html
var indexTemplate string

var indexTmpl = template.Must(template.New("index").Parse(indexTemplate))

// HTTP server timeout constants
const (
	DefaultReadTimeout  = 15 * time.Second // Maximum duration for reading the entire request
	DefaultWriteTimeout = 15 * time.Second // Maximum duration before timing out writes of the response
	DefaultIdleTimeout  = 60 * time.Second // Maximum amount of time to wait for the next request
)

// StatusProvider reports poll loop state. *collector.Registry implements it.
type StatusProvider interface {
	IsReady() bool
	LastTickTime() time.Time
	Collectors() []collector.Collector
	LastErrors() []*collector.CollectError
}

// collectorRow is one line of the collector table on the index page
type collectorRow struct {
	Name   string
	Gauges string
	Result string
	Failed bool
}

// indexPageData holds template data for the index page
type indexPageData struct {
	StatusClass      string
	StatusText       string
	Mode             string
	LastTick         string
	CollectorCount  int
	RefreshInterval int
	Collectors      []collectorRow
	FailedCount     int
	FortuneEnabled  bool
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	status StatusProvider
	cfg    *config.Config
	logger *logger.Logger
}

// NewServer creates a new HTTP server. metrics serves /metrics; /fortune is
// registered only when enabled in cfg.
func NewServer(cfg *config.Config, status StatusProvider, metrics http.Handler, log *logger.Logger) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:      mux,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		status: status,
		cfg:    cfg,
		logger: log,
	}

	// Register handlers
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", metrics)

	if cfg.Fortune.Enabled {
		teller, err := fortune.NewTeller(fortune.Default, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create fortune teller: %w", err)
		}
		mux.Handle("/fortune", fortune.Handler(teller, cfg.Fortune.Format, log))
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleIndex serves a simple status page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	statusClass := "not-ready"
	statusText := "Not Ready"
	if s.status.IsReady() {
		statusClass = "ready"
		statusText = "Ready"
	}

	lastTick := s.status.LastTickTime()
	lastTickText := "Never"
	if !lastTick.IsZero() {
		lastTickText = lastTick.Format("2006-01-02 15:04:05 MST")
	}

	lastErrors := s.status.LastErrors()
	failed := make(map[string]string, len(lastErrors))
	for _, ce := range lastErrors {
		failed[ce.Collector] = string(ce.Kind)
	}

	collectors := s.status.Collectors()
	rows := make([]collectorRow, 0, len(collectors))
	for _, c := range collectors {
		row := collectorRow{Name: c.Name(), Result: "ok"}
		names := make([]string, 0, len(c.Gauges()))
		for _, g := range c.Gauges() {
			names = append(names, g.Name())
		}
		row.Gauges = strings.Join(names, ", ")
		if kind, ok := failed[c.Name()]; ok {
			row.Result = kind
			row.Failed = true
		} else if lastTick.IsZero() {
			row.Result = "pending"
		}
		rows = append(rows, row)
	}

	data := indexPageData{
		StatusClass:     statusClass,
		StatusText:      statusText,
		Mode:            string(s.cfg.Mode),
		LastTick:        lastTickText,
		CollectorCount:  len(rows),
		RefreshInterval: s.cfg.RefreshInterval,
		Collectors:      rows,
		FailedCount:     len(lastErrors),
		FortuneEnabled:  s.cfg.Fortune.Enabled,
	}

	w.Header().Set("Content-Type", "text/html")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("Failed to execute index template", "error", err)
	}
}

// handleHealth handles health check requests (always returns 200 for liveness)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
		s.logger.Error("Failed to write health response", "error", err)
	}
}

// handleReady returns 200 once a tick has completed with at least one
// successful collector
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.status.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte(`{"status":"not ready","message":"waiting for a successful collection"}`)); err != nil {
			s.logger.Error("Failed to write ready response", "error", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"status":"ready","failed_collectors":%d}`, len(s.status.LastErrors())); err != nil {
		s.logger.Error("Failed to write ready response", "error", err)
	}
}
