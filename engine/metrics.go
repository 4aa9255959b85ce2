package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics 是引擎的 Prometheus 指标。未通过 WithRegisterer 指定时指标不注册，只在进程内累计。
type metrics struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	version       prometheus.Gauge
	items         *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playrec_queries_total",
				Help: "Total number of recommendation queries by strategy and status",
			},
			[]string{"strategy", "status"},
		),
		queryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playrec_query_duration_seconds",
				Help:    "Duration of recommendation queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		builds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playrec_builds_total",
				Help: "Total number of model builds by result",
			},
			[]string{"result"}, // "success", "failure"
		),
		buildDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playrec_build_duration_seconds",
				Help:    "Duration of full model builds in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		version: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "playrec_snapshot_version",
				Help: "Version of the published model snapshot",
			},
		),
		items: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "playrec_snapshot_items",
				Help: "Number of items in the published snapshot",
			},
			[]string{"source"}, // "catalog", "interactions"
		),
	}
}

func (m *metrics) observeQuery(strategy string, status Status, start time.Time) {
	m.queries.WithLabelValues(strategy, string(status)).Inc()
	m.queryDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
}

func (m *metrics) observeBuild(err error, start time.Time) {
	if err != nil {
		m.builds.WithLabelValues("failure").Inc()
		return
	}
	m.builds.WithLabelValues("success").Inc()
	m.buildDuration.Observe(time.Since(start).Seconds())
}
