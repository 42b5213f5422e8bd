// internal/matching/ports.go
package matching

import (
	"context"

	"care-match-workers/internal/models"
)

// CandidateSource is the external search collaborator. It returns pre-filtered candidates.
type CandidateSource interface {
	SearchOrganisations(ctx context.Context, spec models.MatchSpec) ([]models.Candidate, error)
	SearchWorkers(ctx context.Context, spec models.MatchSpec) ([]models.WorkerCandidate, error)
}

// AuthoritativeStore answers the hard-constraint queries. A nil result with a
// nil error means the store holds no record for the entity.
type AuthoritativeStore interface {
	WorkerAvailableInWindow(ctx context.Context, workerID string, window models.TimeWindow) (*bool, error)
	VehicleAvailableForWAV(ctx context.Context, organisationID string, window models.TimeWindow) (*bool, error)
	WorkerClearanceCurrent(ctx context.Context, workerID string) (*bool, error)
	OrganisationPoolAllowed(ctx context.Context, organisationID, participantID string) (*bool, error)
}

type RequestRepository interface {
	GetRequest(ctx context.Context, requestID string) (*models.MatchRequest, error)
}

// ContextProvider returns the participant's dynamic context, or nil when none is recorded.
type ContextProvider interface {
	GetContext(ctx context.Context, participantID string) (*models.DynamicRiskContext, error)
}

// RecommendationStore replaces every stored recommendation for a request.
type RecommendationStore interface {
	ReplaceForRequest(ctx context.Context, requestID string, rows []models.StoredRecommendation) error
}

// EvidenceCounter counts supporting evidence per "entityType:entityId" ref.
type EvidenceCounter interface {
	CountEvidence(ctx context.Context, refs []string) (map[string]int, error)
}

type EventPublisher interface {
	PublishRecommendationsGenerated(ctx context.Context, event RecommendationsGeneratedEvent) error
}

type RecommendationsGeneratedEvent struct {
	RequestID     string             `json:"requestId"`
	ParticipantID string             `json:"participantId"`
	RequestType   models.RequestType `json:"requestType"`
	Combined      int                `json:"combined"`
	Care          int                `json:"care"`
	Transport     int                `json:"transport"`
	GeneratedAt   string             `json:"generatedAt"`
}
