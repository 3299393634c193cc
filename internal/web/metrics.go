package web

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	previewsTotal *prometheus.CounterVec
	previewRows   *prometheus.CounterVec
	exportsTotal  *prometheus.CounterVec

	snapshotReloads  *prometheus.CounterVec
	snapshotEntities prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxonomy_import",
			Name:      "http_requests_total",
			Help:      "Total number of API requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taxonomy_import",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),
		previewsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxonomy_import",
			Name:      "previews_total",
			Help:      "Total number of import previews by result.",
		}, []string{"format", "result"}),
		previewRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxonomy_import",
			Name:      "preview_rows_total",
			Help:      "Total number of previewed rows by action.",
		}, []string{"action"}),
		exportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxonomy_import",
			Name:      "exports_total",
			Help:      "Total number of snapshot exports by format.",
		}, []string{"format"}),
		snapshotReloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxonomy_import",
			Name:      "snapshot_reloads_total",
			Help:      "Total number of snapshot loads by result.",
		}, []string{"result"}),
		snapshotEntities: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "taxonomy_import",
			Name:      "snapshot_entities",
			Help:      "Number of entities in the snapshot in use.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// instrument counts requests by route pattern once chi has routed them.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// observePreview records the per-action row counts of a preview.
func (m *metrics) observePreview(format string, resp *core.PreviewResponse) {
	m.previewsTotal.WithLabelValues(format, "ok").Inc()
	sum := resp.Summary
	for action, n := range map[core.Action]int{
		core.ActionCreate:  sum.NewRows,
		core.ActionUpdate:  sum.UpdateRows,
		core.ActionSkip:    sum.SkipRows,
		core.ActionUnknown: sum.UnknownRows,
		core.ActionInvalid: sum.InvalidRows,
	} {
		if n > 0 {
			m.previewRows.WithLabelValues(string(action)).Add(float64(n))
		}
	}
}
