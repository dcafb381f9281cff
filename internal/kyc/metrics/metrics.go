package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the KYC module: intake volume, lifecycle
// transitions, and the pipeline's auto-approval split.
type Metrics struct {
	CasesInitiated    prometheus.Counter
	CasesSubmitted    prometheus.Counter
	AutoApproved      prometheus.Counter
	ManualReview      prometheus.Counter
	Transitions       *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	PipelineFailures  prometheus.Counter
	EnrichmentSkipped prometheus.Counter
}

// New creates a Metrics instance with all KYC module metrics registered.
func New() *Metrics {
	return &Metrics{
		CasesInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyra_cases_initiated_total",
			Help: "Total number of KYC cases initiated",
		}),
		CasesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyra_cases_submitted_total",
			Help: "Total number of KYC cases submitted for verification",
		}),
		AutoApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyra_cases_auto_approved_total",
			Help: "Total number of cases auto-approved by the enrichment pipeline",
		}),
		ManualReview: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyra_cases_manual_review_total",
			Help: "Total number of cases routed to manual review",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyra_status_transitions_total",
			Help: "Status transitions by target state",
		}, []string{"to"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kyra_enrichment_duration_seconds",
			Help:    "Duration of full enrichment pipeline runs",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PipelineFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyra_enrichment_failures_total",
			Help: "Enrichment pipeline runs that aborted on an external error",
		}),
		EnrichmentSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyra_enrichment_skipped_total",
			Help: "Pipeline runs skipped because the case was already locked or had moved state",
		}),
	}
}

// ObservePipeline records the duration of one enrichment run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObservePipeline(start time.Time) {
	m.PipelineDuration.Observe(time.Since(start).Seconds())
}
