package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veostudio",
			Name:      "generation_runs_total",
			Help:      "Completed generation runs by result (success or error kind)",
		},
		[]string{"result"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "veostudio",
			Name:      "generation_run_duration_seconds",
			Help:      "End-to-end duration of generation runs by result",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"result"},
	)

	pollAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "veostudio",
			Name:      "poll_attempts_total",
			Help:      "Total operation status polls",
		},
	)

	downloadedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "veostudio",
			Name:      "artifact_downloaded_bytes_total",
			Help:      "Total bytes of downloaded video artifacts",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(runsTotal, runDuration, pollAttempts, downloadedBytes)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveRun records one finished run with its result label.
func ObserveRun(result string, dur time.Duration) {
	runsTotal.WithLabelValues(result).Inc()
	runDuration.WithLabelValues(result).Observe(dur.Seconds())
}

func IncPollAttempt() { pollAttempts.Inc() }

func AddDownloadedBytes(n int) { downloadedBytes.Add(float64(n)) }
