// internal/common/metrics/metrics.go
package metrics

import (
	"care-match-workers/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MatchCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_candidates",
			Help:    "Candidates remaining after each pipeline stage",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"stage"},
	)

	MatchUnknowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_verification_unknowns_total",
			Help: "Verification checks that could not be answered, by reason",
		},
		[]string{"reason"},
	)

	MatchConfidence = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_recommendations_total",
			Help: "Scored recommendations by confidence tier",
		},
		[]string{"confidence"},
	)

	ReorderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_reorder_duration_seconds",
			Help:    "Duration of in-memory recommendation reorders",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
)

// PipelineRecorder feeds pipeline stage counts into the match vectors.
type PipelineRecorder struct{}

func (PipelineRecorder) StageCandidates(stage string, n int) {
	MatchCandidates.WithLabelValues(stage).Observe(float64(n))
}

func (PipelineRecorder) UnknownReason(reason string) {
	MatchUnknowns.WithLabelValues(reason).Inc()
}

func (PipelineRecorder) ConfidenceTier(tier models.Confidence) {
	MatchConfidence.WithLabelValues(string(tier)).Inc()
}
