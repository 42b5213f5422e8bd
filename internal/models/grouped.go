// internal/models/grouped.go
package models

import "time"

type OrganisationCard struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Type          OrganisationType `json:"type,omitempty"`
	Verified      bool             `json:"verified"`
	ServiceTypes  []string         `json:"serviceTypes"`
	Capabilities  []string         `json:"capabilities"`
	EvidenceCount int              `json:"evidenceCount"`
}

type WorkerCard struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CanDrive      bool     `json:"canDrive"`
	Capabilities  []string `json:"capabilities"`
	Languages     []string `json:"languages"`
	EvidenceCount int      `json:"evidenceCount"`
}

// RecommendationCard is a display-ready recommendation.
type RecommendationCard struct {
	ScoredRecommendation
	Label             string           `json:"label"`
	ConfidenceColour  string           `json:"confidenceColour"`
	VerificationBadge string           `json:"verificationBadge"`
	Organisation      OrganisationCard `json:"organisation"`
	Worker            *WorkerCard      `json:"worker,omitempty"`
}

type SplitRecommendations struct {
	Care      []RecommendationCard `json:"care"`
	Transport []RecommendationCard `json:"transport"`
}

type GroupedMeta struct {
	OrganisationsFound int         `json:"organisationsFound"`
	WorkersFound       int         `json:"workersFound"`
	CandidatesVerified int         `json:"candidatesVerified"`
	CandidatesExcluded int         `json:"candidatesExcluded"`
	CandidatesScored   int         `json:"candidatesScored"`
	ScoringMode        ScoringMode `json:"scoringMode"`
	GeneratedAt        time.Time   `json:"generatedAt"`
}

// GroupedRecommendations is the terminal output of a pipeline run.
type GroupedRecommendations struct {
	RequestID   string               `json:"requestId"`
	RequestType RequestType          `json:"requestType"`
	Combined    []RecommendationCard `json:"combined"`
	Split       SplitRecommendations `json:"split"`
	Meta        GroupedMeta          `json:"meta"`
}

// ReorderResult is returned by the reorder path.
type ReorderResult struct {
	Recommendations []ScoredRecommendation `json:"recommendations"`
	ReorderedAt     time.Time              `json:"reorderedAt"`
	ChangesApplied  []string               `json:"changesApplied"`
	PositionChanges []string               `json:"positionChanges"`
}

type Bucket string

const (
	BucketCombined  Bucket = "combined"
	BucketCare      Bucket = "care"
	BucketTransport Bucket = "transport"
)

// StoredRecommendation is one persisted row: a recommendation and the bucket its rank belongs to.
type StoredRecommendation struct {
	Bucket         Bucket               `json:"bucket"`
	Recommendation ScoredRecommendation `json:"recommendation"`
}
