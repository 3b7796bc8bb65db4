package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgpai22/cuesync/internal/caption"
	"github.com/mgpai22/cuesync/internal/playback"
)

const namespace = "cuesync"

// Metrics holds Prometheus collectors for an editing session and the overlay
// server. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	captionOps   *prometheus.CounterVec
	captions     prometheus.Gauge
	transportOps *prometheus.CounterVec
	mediaLoads   *prometheus.CounterVec
	sseClients   prometheus.Gauge
	sseEvents    prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		captionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caption_operations_total",
			Help:      "Caption mutations by operation and result.",
		}, []string{"op", "result"}),
		captions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "captions",
			Help:      "Captions in the current session.",
		}),
		transportOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_requests_total",
			Help:      "Play, pause and seek requests by result.",
		}, []string{"op", "result"}),
		mediaLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_loads_total",
			Help:      "Media load attempts by result.",
		}, []string{"result"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected overlay event streams.",
		}),
		sseEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_events_published_total",
			Help:      "State events written to overlay streams.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path_pattern", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),
	}

	m.registry.MustRegister(
		m.captionOps,
		m.captions,
		m.transportOps,
		m.mediaLoads,
		m.sseClients,
		m.sseEvents,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// result label for a caption mutation
func captionResult(err error) string {
	var verr *caption.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "rejected"
	case errors.Is(err, caption.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// result label for a transport request
func transportResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, playback.ErrTransportBusy):
		return "busy"
	default:
		return "failed"
	}
}

func (m *Metrics) ObserveCaptionOp(op string, err error) {
	if m == nil {
		return
	}
	m.captionOps.WithLabelValues(op, captionResult(err)).Inc()
}

func (m *Metrics) SetCaptions(n int) {
	if m == nil {
		return
	}
	m.captions.Set(float64(n))
}

func (m *Metrics) ObserveTransport(op string, err error) {
	if m == nil {
		return
	}
	m.transportOps.WithLabelValues(op, transportResult(err)).Inc()
}

func (m *Metrics) ObserveMediaLoad(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.mediaLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) SSEClientConnected() {
	if m == nil {
		return
	}
	m.sseClients.Inc()
}

func (m *Metrics) SSEClientDisconnected() {
	if m == nil {
		return
	}
	m.sseClients.Dec()
}

func (m *Metrics) IncSSEEvents() {
	if m == nil {
		return
	}
	m.sseEvents.Inc()
}

// InstrumentHandler returns middleware that records HTTP request metrics,
// labelled with chi's route pattern to keep cardinality bounded.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		pattern := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the Flusher for SSE streams.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Flush forwards to the underlying writer so SSE works through the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
