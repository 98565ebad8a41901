package monitoring

import (
	"github.com/go-chi/chi/v5"
	"net/http"
	"strconv"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type PrometheusMiddleware struct {
	handler http.Handler
}

func (m *PrometheusMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/metrics" {
		// Skip collecting metrics from metrics endpoint itself
		m.handler.ServeHTTP(w, r)
		return
	}

	ActiveConnections.Inc()
	defer ActiveConnections.Dec()

	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	m.handler.ServeHTTP(recorder, r)
	elapsed := time.Since(start)

	// The route pattern is only known once chi has routed the request.
	path := "unmatched"
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		path = rctx.RoutePattern()
	}
	HttpRequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
	HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(recorder.status)).Inc()
}

func NewPrometheusMiddleware(handlerToWrap http.Handler) *PrometheusMiddleware {
	return &PrometheusMiddleware{handlerToWrap}
}
