package metrics

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devserver_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	httpResponseBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_http_response_bytes_total",
			Help: "Response body bytes written",
		},
		[]string{"route"},
	)

	rangeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_range_requests_total",
			Help: "Requests carrying a Range header, by outcome",
		},
		[]string{"outcome"},
	)

	watchScansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devserver_watch_scans_total",
		Help: "Completed watch scans",
	})

	watchScanErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devserver_watch_scan_errors_total",
		Help: "Watch scans that failed as a whole",
	})

	watchChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devserver_watch_changes_total",
		Help: "File changes detected by the watcher",
	})

	watchTrackedFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "devserver_watch_tracked_files",
		Help: "Files currently tracked by the watcher",
	})

	reloadClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "devserver_reload_clients",
		Help: "Connected live-reload clients",
	})

	reloadBroadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devserver_reload_broadcasts_total",
		Help: "Reload signals broadcast to clients",
	})
)

// Range request outcomes.
const (
	RangePartial       = "partial"
	RangeUnsatisfiable = "unsatisfiable"
	RangeMalformed     = "malformed"
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		httpResponseBytes,
		rangeRequestsTotal,
		watchScansTotal,
		watchScanErrorsTotal,
		watchChangesTotal,
		watchTrackedFiles,
		reloadClients,
		reloadBroadcastsTotal,
	)
}

// Middleware records per-route request metrics. It must run inside the mux
// router so the route template is available as a low-cardinality label.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := routeName(r)

		httpRequestsTotal.WithLabelValues(
			route,
			r.Method,
			statusString(m.Code),
		).Inc()

		httpRequestDuration.WithLabelValues(
			route,
			r.Method,
		).Observe(m.Duration.Seconds())

		httpResponseBytes.WithLabelValues(route).Add(float64(m.Written))
	})
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func statusString(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveRange(outcome string) {
	rangeRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveScan(tracked int) {
	watchScansTotal.Inc()
	watchTrackedFiles.Set(float64(tracked))
}

func ObserveScanError() {
	watchScanErrorsTotal.Inc()
}

func ObserveChange() {
	watchChangesTotal.Inc()
}

func SetReloadClients(n int) {
	reloadClients.Set(float64(n))
}

func ObserveBroadcast() {
	reloadBroadcastsTotal.Inc()
}
