// Package metrics exposes Prometheus metrics for trscan processing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gogpu/trscan"
)

var (
	EndpointResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trscan_endpoint_responses_total",
		Help: "The total number of endpoint responses",
	}, []string{"endpoint", "status_code"})

	// ProcessTotal counts Process calls by outcome: "ok" or the error kind.
	ProcessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trscan_process_total",
		Help: "Total number of classification calls by outcome",
	}, []string{"outcome"})

	GPUTimeMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trscan_gpu_time_ms",
		Help:    "GPU time of the classification dispatch in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16), // 10us to ~330ms
	})

	InputBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trscan_input_bytes",
		Help:    "Size of classified inputs in bytes",
		Buckets: prometheus.ExponentialBuckets(64, 4, 12), // 64B to 256MiB
	})

	ThroughputMBps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trscan_throughput_mb_per_second",
		Help: "Throughput of the last successful classification in MB/s",
	})

	// Last per-category counts, labelled ascii, turkish, other_utf8,
	// invalid and boundary.
	LastCounts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trscan_last_counts",
		Help: "Per-category counts of the last successful classification",
	}, []string{"category"})
)

// OutcomeOK labels successful calls in ProcessTotal.
const OutcomeOK = "ok"

// Record updates the processing metrics with the outcome of one call.
func Record(res *trscan.Result, err error) {
	if err != nil {
		ProcessTotal.WithLabelValues(Outcome(err)).Inc()
		return
	}
	ProcessTotal.WithLabelValues(OutcomeOK).Inc()
	GPUTimeMs.Observe(res.ProcessingTime)
	InputBytes.Observe(float64(res.InputSize))
	ThroughputMBps.Set(res.Throughput)

	s := res.Stats
	LastCounts.WithLabelValues("ascii").Set(float64(s.ASCIICount))
	LastCounts.WithLabelValues("turkish").Set(float64(s.TurkishCharCount))
	LastCounts.WithLabelValues("other_utf8").Set(float64(s.OtherUTF8Count))
	LastCounts.WithLabelValues("invalid").Set(float64(s.InvalidCount))
	LastCounts.WithLabelValues("boundary").Set(float64(s.BoundaryCount))
}

// Outcome returns the ProcessTotal label for err.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if k := trscan.KindOf(err); k != 0 {
		return k.String()
	}
	return "Unknown"
}
