package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for ingestion runs.
type Metrics struct {
	RunsTotal            *prometheus.CounterVec
	ChunksTotal          *prometheus.CounterVec
	MalformedChunksTotal prometheus.Counter
	RunDuration          *prometheus.HistogramVec
}

// NewMetrics registers and returns ingestion metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "licita_ingest_runs_total",
			Help: "Total ingestion runs by route and final status.",
		}, []string{"route", "status"}),
		ChunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "licita_ingest_chunks_total",
			Help: "Extraction chunks received by chunk status.",
		}, []string{"status"}),
		MalformedChunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "licita_ingest_malformed_chunks_total",
			Help: "Extraction stream lines dropped because they did not decode.",
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licita_ingest_duration_seconds",
			Help:    "Duration of ingestion runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.ChunksTotal,
		m.MalformedChunksTotal,
		m.RunDuration,
	)

	return m
}

func (m *Metrics) observeRun(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(route, status).Inc()
	m.RunDuration.WithLabelValues(route).Observe(seconds)
}

func (m *Metrics) observeChunk(status string) {
	if m == nil {
		return
	}
	m.ChunksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) observeMalformed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.MalformedChunksTotal.Add(float64(n))
}
