package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal     *prometheus.CounterVec
	TriageDuration   *prometheus.HistogramVec
	SubmitsTotal     *prometheus.CounterVec
	EvidenceCommits  prometheus.Histogram
	EvidenceLogLines prometheus.Histogram
	BundleBytes      prometheus.Histogram
	PRsTotal         prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incidentd_triages_total",
			Help: "Total triage runs by final session status.",
		}, []string{"status"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "incidentd_triage_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~2048s
		}, []string{"status", "trigger"}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incidentd_submits_total",
			Help: "Total incident submissions by result.",
		}, []string{"result"}),
		EvidenceCommits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "incidentd_evidence_commits",
			Help:    "Commits gathered per evidence package.",
			Buckets: prometheus.LinearBuckets(0, 5, 11), // 0 .. 50
		}),
		EvidenceLogLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "incidentd_evidence_log_entries",
			Help:    "Log entries gathered per evidence package.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 .. ~16384
		}),
		BundleBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "incidentd_evidence_bundle_bytes",
			Help:    "Size of the evidence archive in bytes.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KB .. ~16MB
		}),
		PRsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incidentd_session_prs_total",
			Help: "Total triage runs that produced a pull request.",
		}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.SubmitsTotal,
		m.EvidenceCommits,
		m.EvidenceLogLines,
		m.BundleBytes,
		m.PRsTotal,
	)

	return m
}

func (m *Metrics) observeEvidence(commits, logEntries int, bundleBytes int64) {
	if m == nil {
		return
	}
	m.EvidenceCommits.Observe(float64(commits))
	m.EvidenceLogLines.Observe(float64(logEntries))
	m.BundleBytes.Observe(float64(bundleBytes))
}

func (m *Metrics) observeRun(status, trigger string, seconds float64, prOpened bool) {
	if m == nil {
		return
	}
	m.TriagesTotal.WithLabelValues(status).Inc()
	m.TriageDuration.WithLabelValues(status, trigger).Observe(seconds)
	if prOpened {
		m.PRsTotal.Inc()
	}
}

func (m *Metrics) observeSubmit(result string) {
	if m == nil {
		return
	}
	m.SubmitsTotal.WithLabelValues(result).Inc()
}
