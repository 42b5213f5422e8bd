// internal/workers/matching/reorder-recommendations/models.go
package reorderrecommendations

import (
	"context"

	"care-match-workers/internal/models"
)

type Input struct {
	Recommendations []models.ScoredRecommendation `json:"recommendations"`
	DynamicContext  models.DynamicRiskContext     `json:"dynamicContext"`
	Urgency         models.Urgency                `json:"urgency"`
}

// Reorderer is satisfied by *matching.Reorderer.
type Reorderer interface {
	Reorder(recs []models.ScoredRecommendation, rc models.DynamicRiskContext, urgency models.Urgency) models.ReorderResult
}

type InputValidator interface {
	ValidateInput(taskType string, variables map[string]interface{}) error
}

type ReorderRecorder interface {
	RecordReorder(ctx context.Context, status string)
}
