// Package metrics exposes remediation progress as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// Reporter counts outcomes on its own registry.
type Reporter struct {
	registry *prometheus.Registry

	ObjectsTotal         *prometheus.CounterVec
	BytesRemediatedTotal prometheus.Counter
	ListPagesTotal       *prometheus.CounterVec
	ObjectDuration       *prometheus.HistogramVec
}

// NewReporter creates a Reporter with a private registry.
func NewReporter() *Reporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Reporter{
		registry: registry,
		ObjectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3encrypt_objects_total",
				Help: "Total number of objects examined, by outcome",
			},
			[]string{"outcome", "dry_run"},
		),
		BytesRemediatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "s3encrypt_bytes_remediated_total",
				Help: "Total size in bytes of objects rewritten under the target encryption",
			},
		),
		ListPagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3encrypt_list_pages_total",
				Help: "Total number of listing pages fetched",
			},
			[]string{"bucket"},
		),
		ObjectDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3encrypt_object_duration_seconds",
				Help:    "Time spent processing a single object",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the registry holding the metrics.
func (r *Reporter) Registry() *prometheus.Registry {
	return r.registry
}

// Report implements s3types.Reporter.
func (r *Reporter) Report(_ context.Context, result *s3types.RemediationResult) {
	outcome := string(result.Outcome)
	dryRun := "false"
	if result.DryRun {
		dryRun = "true"
	}

	r.ObjectsTotal.WithLabelValues(outcome, dryRun).Inc()
	r.ObjectDuration.WithLabelValues(outcome).Observe(result.Duration.Seconds())
	if result.Rewritten {
		r.BytesRemediatedTotal.Add(float64(result.Size))
	}
}

// ObservePage counts one fetched listing page.
func (r *Reporter) ObservePage(_ context.Context, bucket string, _ int) {
	r.ListPagesTotal.WithLabelValues(bucket).Inc()
}

// WriteTextfile writes the current metrics in the text exposition format to
// path, for pickup by a node exporter textfile collector.
func (r *Reporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
