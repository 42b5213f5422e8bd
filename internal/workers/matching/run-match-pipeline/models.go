// internal/workers/matching/run-match-pipeline/models.go
package runmatchpipeline

import (
	"context"
	"time"

	"care-match-workers/internal/models"
)

type Input struct {
	RequestID string `json:"requestId"`
}

// PipelineRunner is satisfied by *matching.Pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, requestID string) (*models.GroupedRecommendations, error)
}

// InputValidator checks raw job variables before they are decoded.
type InputValidator interface {
	ValidateInput(taskType string, variables map[string]interface{}) error
}

// RunRecorder receives one observation per finished pipeline run.
type RunRecorder interface {
	RecordPipelineRun(ctx context.Context, status, requestType string, duration time.Duration)
}
