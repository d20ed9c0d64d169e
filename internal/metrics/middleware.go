package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	requestsCollectorName = "http_requests_total"
	latencyCollectorName  = "http_request_duration_milliseconds"
)

// Middleware exposes request counts and latency partitioned by status
// code, method and route pattern.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMiddleware returns a middleware whose collectors carry the given
// service name as a constant label. Call Register before serving.
func NewMiddleware(name string) *Middleware {
	return &Middleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        requestsCollectorName,
			Help:        "Number of HTTP requests partitioned by status code, method and HTTP path.",
			ConstLabels: prometheus.Labels{"service": name},
		}, []string{"code", "method", "path"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        latencyCollectorName,
			Help:        "Time spent on the request partitioned by status code, method and HTTP path.",
			ConstLabels: prometheus.Labels{"service": name},
			Buckets:     []float64{5, 50, 300, 1000, 5000},
		}, []string{"code", "method", "path"}),
	}
}

// Handler wraps next with request accounting.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rp := rctx.RoutePattern()
			code := strconv.Itoa(ww.Status())
			m.requests.WithLabelValues(code, r.Method, rp).Inc()
			m.latency.WithLabelValues(code, r.Method, rp).Observe(float64(time.Since(start).Milliseconds()))
		}
	})
}

// Register adds the collectors to reg. When an identical collector is
// already registered there, the middleware records into that one instead.
func (m *Middleware) Register(reg prometheus.Registerer) {
	if err := reg.Register(m.requests); err != nil {
		m.requests = existing(err).(*prometheus.CounterVec)
	}
	if err := reg.Register(m.latency); err != nil {
		m.latency = existing(err).(*prometheus.HistogramVec)
	}
}

func existing(err error) prometheus.Collector {
	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		panic(err)
	}
	return are.ExistingCollector
}
