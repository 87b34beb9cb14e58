package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mop.org/internal/cases"
)

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

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mop_ready",
		Help: "1 when the last readiness probe succeeded.",
	})

	casesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mop_cases_created_total",
		Help: "Onboarding cases created.",
	})

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mop_case_status_transitions_total",
			Help: "Case status changes by from/to status.",
		},
		[]string{"from", "to"},
	)

	permissionChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mop_permission_checks_total",
			Help: "Permission decisions by permission and outcome.",
		},
		[]string{"permission", "allowed"},
	)

	initOnce sync.Once
)

// Init registers every collector in the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			readyGauge, casesCreated, statusTransitions, permissionChecks,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the outcome of the last readiness probe.
func SetReady(ok bool) {
	if ok {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// Instrument measures in-flight requests, request counts and latency per
// canonical path.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// static path segments under each /v1 resource; anything else is an id
var staticSegments = map[string]map[string]bool{
	"cases":           {"search": true, "statistics": true, "by-assignee": true, "history": true, "events": true},
	"dashboard":       {"stats": true, "users": true},
	"roles":           {"active": true, "has-permission": true},
	"permissions":     {"active": true, "category": true},
	"users":           {"search": true, "by-role": true, "toggle-status": true},
	"business-params": {"business-types": true, "merchant-categories": true, "risk-categories": true},
	"auth":            {"login": true, "register": true, "refresh": true},
	"info":            {},
}

// named placeholders for the segment following a static one
var placeholderAfter = map[string]string{
	"has-permission": ":perm",
	"category":       ":category",
}

// CanonicalPath collapses ids in known routes so metric labels stay bounded.
// Paths outside the known /v1 resources are returned unchanged.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) < 2 || segs[0] != "v1" {
		return p
	}
	static, ok := staticSegments[segs[1]]
	if !ok {
		return p
	}
	out := make([]string, len(segs))
	copy(out, segs[:2])
	for i := 2; i < len(segs); i++ {
		switch {
		case static[segs[i]]:
			out[i] = segs[i]
		case placeholderAfter[segs[i-1]] != "":
			out[i] = placeholderAfter[segs[i-1]]
		default:
			out[i] = ":id"
		}
	}
	return "/" + strings.Join(out, "/")
}

// CaseMetrics feeds case lifecycle events into Prometheus.
type CaseMetrics struct{}

var _ cases.Observer = CaseMetrics{}

func (CaseMetrics) CaseCreated(cases.Case) { casesCreated.Inc() }

func (CaseMetrics) StatusChanged(_ cases.Case, from, to cases.Status) {
	statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// PermissionMetrics counts permission decisions.
type PermissionMetrics struct{}

func (PermissionMetrics) PermissionChecked(permID string, allowed bool) {
	permissionChecks.WithLabelValues(permID, strconv.FormatBool(allowed)).Inc()
}
