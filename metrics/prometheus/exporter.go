package prometheus

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	readHeaderTimeout = 10 * time.Second
	closedState       = "CLOSED"
)

// SessionStatus is the live-session snapshot served on /health.
type SessionStatus struct {
	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	Speaking  bool   `json:"speaking"`
	Error     string `json:"error,omitempty"`
}

// failed reports whether the last session ended on an error.
func (s SessionStatus) failed() bool {
	return s.State == closedState && s.Error != ""
}

type healthResponse struct {
	Status  string         `json:"status"`
	Session *SessionStatus `json:"session,omitempty"`
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithRegistry serves reg instead of the package collectors.
func WithRegistry(reg *prometheus.Registry) ExporterOption {
	return func(e *Exporter) { e.registry = reg }
}

// WithSessionStatus reports the live session on /health. A session that
// closed with an error turns the endpoint 503.
func WithSessionStatus(fn func() SessionStatus) ExporterOption {
	return func(e *Exporter) { e.status = fn }
}

// Exporter serves /metrics and /health for a live session process.
type Exporter struct {
	addr     string
	registry *prometheus.Registry
	status   func() SessionStatus

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewExporter creates an exporter for addr. Without WithRegistry it serves
// the session collectors plus Go runtime and process metrics.
func NewExporter(addr string, opts ...ExporterOption) *Exporter {
	e := &Exporter{addr: addr}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
		e.registry.MustRegister(allMetrics...)
		e.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return e
}

// Registry returns the registry being served.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Addr returns the bound address once Start is listening, else the
// configured one.
func (e *Exporter) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil {
		return e.listener.Addr().String()
	}
	return e.addr
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown, and nil if already started.
func (e *Exporter) Start() error {
	e.mu.Lock()
	if e.server != nil {
		e.mu.Unlock()
		return nil
	}
	ln, err := net.Listen("tcp", e.addr)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	srv := &http.Server{Handler: e.handler(), ReadHeaderTimeout: readHeaderTimeout}
	e.server, e.listener = srv, ln
	e.mu.Unlock()

	return srv.Serve(ln)
}

// Shutdown gracefully stops the server.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	srv := e.server
	e.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (e *Exporter) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", e.serveHealth)
	return otelhttp.NewHandler(mux, "dayugame.exporter")
}

func (e *Exporter) serveHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if e.status != nil {
		st := e.status()
		resp.Session = &st
		if st.failed() {
			resp.Status = "failed"
			code = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
