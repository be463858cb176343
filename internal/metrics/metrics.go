// Package metrics collects per-run counters for a retrieval run and writes
// them in the Prometheus text format for the node exporter textfile
// collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one run. A nil *Metrics discards all
// observations.
type Metrics struct {
	registry *prometheus.Registry

	Files        *prometheus.CounterVec
	Attempts     *prometheus.CounterVec
	Bytes        prometheus.Counter
	Pages        prometheus.Counter
	Mirrored     *prometheus.CounterVec
	FileDuration prometheus.Histogram
	LastRun      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Files: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warcfetch_files_total",
				Help: "Files processed, by final outcome.",
			},
			[]string{"outcome"}, // succeeded, checksum_mismatch, download_failed
		),
		Attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warcfetch_download_attempts_total",
				Help: "Download attempts, by attempt result.",
			},
			[]string{"result"}, // ok, transient, fatal, invalid
		),
		Bytes: f.NewCounter(prometheus.CounterOpts{
			Name: "warcfetch_downloaded_bytes_total",
			Help: "Bytes written to disk by successful transfers.",
		}),
		Pages: f.NewCounter(prometheus.CounterOpts{
			Name: "warcfetch_metadata_pages_total",
			Help: "Metadata pages fetched.",
		}),
		Mirrored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warcfetch_mirrored_files_total",
				Help: "Files copied to the mirror bucket, by result.",
			},
			[]string{"result"}, // uploaded, skipped, failed
		),
		FileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warcfetch_file_duration_seconds",
			Help:    "Time spent retrieving and validating one file.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "warcfetch_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
}

// ObserveFile records the outcome and duration of one file.
func (m *Metrics) ObserveFile(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(outcome).Inc()
	m.FileDuration.Observe(d.Seconds())
}

// ObserveAttempt records the result of one download attempt.
func (m *Metrics) ObserveAttempt(result string, bytes int64) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.Bytes.Add(float64(bytes))
	}
}

// ObservePage records one fetched metadata page.
func (m *Metrics) ObservePage() {
	if m == nil {
		return
	}
	m.Pages.Inc()
}

// ObserveMirror records the result of copying a file to the mirror.
func (m *Metrics) ObserveMirror(result string) {
	if m == nil {
		return
	}
	m.Mirrored.WithLabelValues(result).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile stamps the run completion time and writes all metrics to
// path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	m.LastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}
