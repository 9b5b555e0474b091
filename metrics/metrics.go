// Package metrics provides the request-counter and duration-histogram
// middleware the vws and vwq HTTP surfaces wrap their routers with,
// served on /metrics via promhttp.Handler against a caller-supplied
// registry. Series are labeled by the chi route pattern (e.g.
// "/targets/{id}"), not the literal path, so high-cardinality target
// ids never become label values.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors bundles the prometheus series one service instance
// registers. The vws and vwq surfaces each get their own Collectors so
// a shared registry can still disambiguate by a "service" label; the
// admin surface is not instrumented.
type Collectors struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollectors registers a request counter and a duration histogram,
// both labeled by service/endpoint/method/code, against reg.
func NewCollectors(reg prometheus.Registerer, service string) *Collectors {
	c := &Collectors{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "mockrecon_http_requests_total",
				Help:        "Count of HTTP requests handled by this service.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"endpoint", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "mockrecon_http_response_time_seconds",
				Help:        "Time taken to respond to a request.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"endpoint", "method", "code"},
		),
	}
	reg.MustRegister(c.requests, c.duration)
	return c
}

// statusWriter satisfies http.ResponseWriter while recording the
// status code actually written.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware returns chi middleware that records c.requests and
// c.duration for every request, labeled by the matched chi route
// pattern rather than the literal request path.
func (c *Collectors) Middleware(clk clock.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			begin := clk.Now()
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(sw, r)

			pattern := routePattern(r)
			code := fmt.Sprintf("%d", sw.code)
			c.requests.With(prometheus.Labels{"endpoint": pattern, "method": r.Method, "code": code}).Inc()
			c.duration.With(prometheus.Labels{"endpoint": pattern, "method": r.Method, "code": code}).
				Observe(clk.Since(begin).Seconds())
		})
	}
}

// routePattern returns the chi route pattern that matched r (e.g.
// "/targets/{id}"), falling back to the literal path if chi's route
// context isn't populated yet (the middleware runs before chi finishes
// matching when mounted outermost).
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// Handler exposes reg's collected series on /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
