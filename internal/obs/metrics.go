package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by every handler.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the readiness probe last succeeded.",
	})
)

// Domain metrics for the fan-engagement core.
var (
	authVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribuna_auth_verifications_total",
			Help: "OTP verification attempts by result.",
		},
		[]string{"result"},
	)

	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribuna_checkouts_total",
			Help: "Completed checkouts by kind.",
		},
		[]string{"kind"},
	)

	ticketsSold = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tribuna_tickets_sold_total",
		Help: "Total ticket quantity sold across completed checkouts.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, ready,
		authVerifications, checkoutsTotal, ticketsSold,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the latest readiness probe outcome.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// CountVerification increments the OTP verification counter.
// result is "verified" or "rejected".
func CountVerification(result string) {
	authVerifications.WithLabelValues(result).Inc()
}

// CountCheckout increments the checkout counter for "merchandise" or "tickets".
func CountCheckout(kind string) {
	checkoutsTotal.WithLabelValues(kind).Inc()
}

// AddTicketsSold adds the quantity of tickets confirmed in one checkout.
func AddTicketsSold(n int) {
	if n > 0 {
		ticketsSold.Add(float64(n))
	}
}

// CanonicalPath collapses per-session and per-ticket identifiers so
// metric labels stay low-cardinality.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	const sessions = "/v1/sessions/"
	if strings.HasPrefix(path, sessions) {
		rest := strings.TrimPrefix(path, sessions)
		parts := strings.Split(rest, "/")
		parts[0] = ":id"
		if len(parts) >= 3 && parts[1] == "tickets" && parts[2] != "" {
			parts[2] = ":ticketID"
		}
		return sessions[:len(sessions)-1] + "/" + strings.Join(parts, "/")
	}
	return path
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
