// Package statusapi serves the boot report, a health check and Prometheus
// metrics over HTTP.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/extension_server/internal/engine/events"
	"github.com/R3E-Network/extension_server/internal/engine/metrics"
	"github.com/R3E-Network/extension_server/internal/logging"
	"github.com/R3E-Network/extension_server/internal/middleware"
	"github.com/R3E-Network/extension_server/platform/engine"
)

// BootReporter exposes the state of a boot run.
type BootReporter interface {
	State() engine.State
	LastReport() *engine.Report
}

// EventSource is a queryable lifecycle event journal.
type EventSource interface {
	Recent(n int) []events.Event
	RecentByService(service string, n int) []events.Event
	RecentByType(eventType string, n int) []events.Event
}

// DefaultEventLimit bounds /api/v1/events when no limit is given.
const DefaultEventLimit = 100

// Server is the status HTTP API.
type Server struct {
	reporter BootReporter
	metrics  *metrics.Collector
	events   EventSource
	log      *logging.Logger
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithEvents serves the event journal at /api/v1/events.
func WithEvents(src EventSource) Option {
	return func(s *Server) { s.events = src }
}

// New creates a status API server. m may be nil, in which case /metrics is
// not served.
func New(reporter BootReporter, m *metrics.Collector, log *logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Server{reporter: reporter, metrics: m, log: log}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(s.log), middleware.MetricsMiddleware(s.metrics))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/boot", s.handleBoot).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/boot/services/{id}", s.handleService).Methods(http.MethodGet)
	if s.events != nil {
		r.HandleFunc("/api/v1/events", s.handleEvents).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		errorResponse(w, http.StatusNotFound, "not found")
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("status API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// =============================================================================
// Response Types (JSend-compatible)
// =============================================================================

// Response is a JSend-compatible response.
type Response struct {
	Status  string `json:"status"` // "success", "fail", "error"
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func successResponse(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Status: "success", Data: data})
}

func failResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Status: "fail", Data: data})
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Status: "error", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// =============================================================================
// Views
// =============================================================================

// OutcomeView is the wire form of an engine.Outcome.
type OutcomeView struct {
	ServiceID  string  `json:"service_id"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// BootView is the wire form of an engine.Report.
type BootView struct {
	BootID     string        `json:"boot_id"`
	State      string        `json:"state"`
	Mode       string        `json:"mode"`
	StartedAt  time.Time     `json:"started_at"`
	DurationMS float64       `json:"duration_ms"`
	Started    int           `json:"started"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Outcomes   []OutcomeView `json:"outcomes"`
}

func newOutcomeView(o engine.Outcome) OutcomeView {
	v := OutcomeView{
		ServiceID:  o.ServiceID,
		Status:     string(o.Status),
		DurationMS: float64(o.Duration) / float64(time.Millisecond),
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return v
}

func newBootView(state engine.State, r *engine.Report) BootView {
	v := BootView{
		BootID:     r.BootID,
		State:      string(state),
		Mode:       string(r.Mode),
		StartedAt:  r.StartedAt,
		DurationMS: float64(r.Duration) / float64(time.Millisecond),
		Started:    r.Count(engine.StatusStarted),
		Skipped:    r.Count(engine.StatusSkippedNoFeature) + r.Count(engine.StatusSkippedCoreOnlyMode),
		Failed:     r.Count(engine.StatusFailed),
		Outcomes:   make([]OutcomeView, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		v.Outcomes = append(v.Outcomes, newOutcomeView(o))
	}
	return v
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.reporter.State()
	data := map[string]any{"state": state}

	switch state {
	case engine.StateRunning:
		successResponse(w, data)
	case engine.StateFailed:
		writeJSON(w, http.StatusServiceUnavailable, Response{Status: "error", Data: data, Message: "boot failed"})
	default:
		writeJSON(w, http.StatusServiceUnavailable, Response{Status: "fail", Data: data})
	}
}

func (s *Server) handleBoot(w http.ResponseWriter, _ *http.Request) {
	report := s.reporter.LastReport()
	if report == nil {
		failResponse(w, http.StatusNotFound, map[string]any{"state": s.reporter.State(), "boot": "not completed"})
		return
	}
	successResponse(w, newBootView(s.reporter.State(), report))
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report := s.reporter.LastReport()
	if report == nil {
		failResponse(w, http.StatusNotFound, map[string]any{"boot": "not completed"})
		return
	}

	// duplicates produce several outcomes for one id
	var outcomes []OutcomeView
	for _, o := range report.Outcomes {
		if o.ServiceID == id {
			outcomes = append(outcomes, newOutcomeView(o))
		}
	}
	if len(outcomes) == 0 {
		failResponse(w, http.StatusNotFound, map[string]any{"service_id": "not configured"})
		return
	}
	successResponse(w, map[string]any{"service_id": id, "outcomes": outcomes})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := DefaultEventLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			failResponse(w, http.StatusBadRequest, map[string]any{"limit": "must be a positive integer"})
			return
		}
		limit = n
	}

	var list []events.Event
	switch {
	case q.Get("service") != "":
		list = s.events.RecentByService(q.Get("service"), limit)
	case q.Get("type") != "":
		list = s.events.RecentByType(q.Get("type"), limit)
	default:
		list = s.events.Recent(limit)
	}
	if list == nil {
		list = []events.Event{}
	}
	successResponse(w, map[string]any{"events": list})
}
