// Package metrics exposes analyzer run measurements as Prometheus collectors on a private registry.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

const namespace = "review_sentiment"

var _ analysis.Recorder = (*RunMetrics)(nil)

// RunMetrics implements analysis.Recorder.
type RunMetrics struct {
	Registry *prometheus.Registry

	BatchesTotal     *prometheus.CounterVec
	ReviewsProcessed prometheus.Counter
	ExtractSeconds   *prometheus.HistogramVec
	Entities         prometheus.Gauge
	LastSuccess      prometheus.Gauge
}

func NewRunMetrics(provider, model string) *RunMetrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"provider": provider, "model": model}
	factory := promauto.With(reg)

	return &RunMetrics{
		Registry: reg,
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "batches_total",
				Help:        "Batches by outcome (succeeded, failed, skipped)",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		ReviewsProcessed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "reviews_processed_total",
				Help:        "Reviews in successfully merged batches",
				ConstLabels: labels,
			},
		),
		ExtractSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "extract_duration_seconds",
				Help:        "Extractor call latency including provider retries",
				Buckets:     []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		Entities: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "entities",
				Help:        "Entities in the vocabulary",
				ConstLabels: labels,
			},
		),
		LastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "last_success_timestamp_seconds",
				Help:        "Unix time of the last merged batch",
				ConstLabels: labels,
			},
		),
	}
}

func (m *RunMetrics) BatchDone(outcome string, reviews int) {
	m.BatchesTotal.WithLabelValues(outcome).Inc()
	if outcome == analysis.OutcomeSucceeded {
		m.ReviewsProcessed.Add(float64(reviews))
		m.LastSuccess.SetToCurrentTime()
	}
}

func (m *RunMetrics) ExtractDuration(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ExtractSeconds.WithLabelValues(result).Observe(d.Seconds())
}

func (m *RunMetrics) EntityCount(n int) {
	m.Entities.Set(float64(n))
}

// WriteTextfile writes the registry in the node_exporter textfile format. The write goes through
// a temp file in the same directory so collectors never read a partial file.
func (m *RunMetrics) WriteTextfile(path string) error {
	if path == "" {
		return errors.New("WriteTextfile: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("WriteTextfile: mkdir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("WriteTextfile: %w", err)
	}
	return nil
}
