// internal/models/recommendation.go
package models

type Confidence string

const (
	ConfidenceVerified          Confidence = "verified"
	ConfidenceLikely            Confidence = "likely"
	ConfidenceNeedsVerification Confidence = "needs_verification"
)

// Factor names, in canonical order.
const (
	FactorProximity           = "proximity"
	FactorCapabilityMatch     = "capability_match"
	FactorAvailability        = "availability"
	FactorVerificationStatus  = "verification_status"
	FactorPreferenceAlignment = "preference_alignment"
	FactorReliability         = "reliability"
	FactorUrgencyBonus        = "urgency_bonus"
	FactorEmotionalComfort    = "emotional_comfort"
)

var (
	BaseFactorNames    = []string{FactorProximity, FactorCapabilityMatch, FactorAvailability, FactorVerificationStatus}
	ContextFactorNames = []string{FactorPreferenceAlignment, FactorReliability, FactorUrgencyBonus, FactorEmotionalComfort}
)

type ScoringMode string

const (
	ScoringModeBase         ScoringMode = "base"
	ScoringModeContextAware ScoringMode = "context_aware"
)

// MatchFactor is one normalised scoring dimension.
type MatchFactor struct {
	Name        string  `json:"name"`
	Score       float64 `json:"normalizedScore"`
	Explanation string  `json:"explanation"`
}

// ScoringWeights is the weight vector a score was combined with.
type ScoringWeights struct {
	BaseMatch           float64 `json:"baseMatch"`
	PreferenceAlignment float64 `json:"preferenceAlignment"`
	Reliability         float64 `json:"reliability"`
	UrgencyBonus        float64 `json:"urgencyBonus"`
	EmotionalComfort    float64 `json:"emotionalComfort"`
}

// Total is the normaliser of the weighted sum.
func (w ScoringWeights) Total() float64 {
	return w.BaseMatch + w.PreferenceAlignment + w.Reliability + w.UrgencyBonus + w.EmotionalComfort
}

// ScoreBreakdown carries the weighted components as 0-100 sub-scores.
type ScoreBreakdown struct {
	BaseMatch           float64        `json:"baseMatch"`
	PreferenceAlignment float64        `json:"preferenceAlignment"`
	Reliability         float64        `json:"reliability"`
	UrgencyBonus        float64        `json:"urgencyBonus"`
	EmotionalComfort    float64        `json:"emotionalComfort"`
	Weights             ScoringWeights `json:"weights"`
}

// CandidateSignals snapshots the candidate attributes that context-sensitive
// factors read, so a recommendation can be rescored without new lookups.
type CandidateSignals struct {
	Capabilities          []string `json:"capabilities"`
	WorkerCapabilities    []string `json:"workerCapabilities"`
	WorkerCanDrive        bool     `json:"workerCanDrive"`
	AnyWorkerCanDrive     bool     `json:"anyWorkerCanDrive"`
	AvailabilityConfirmed bool     `json:"availabilityConfirmed"`
	ReliabilityRaw        float64  `json:"reliabilityRaw"`
}

type ScoredRecommendation struct {
	OrganisationID       string           `json:"organisationId"`
	OrganisationName     string           `json:"organisationName,omitempty"`
	OrganisationType     OrganisationType `json:"organisationType"`
	OrganisationVerified bool             `json:"organisationVerified"`
	WorkerID             string           `json:"workerId,omitempty"`
	WorkerName           string           `json:"workerName,omitempty"`
	VehicleID            string           `json:"vehicleId,omitempty"`
	Rank                 int              `json:"rank"`
	Score                float64          `json:"score"`
	Confidence           Confidence       `json:"confidence"`
	ScoringMode          ScoringMode      `json:"scoringMode"`
	Factors              []MatchFactor    `json:"factors"`
	Breakdown            ScoreBreakdown   `json:"breakdown"`
	MatchedCapabilities  []string         `json:"matchedCapabilities"`
	MatchedServiceTypes  []string         `json:"matchedServiceTypes"`
	DistanceKm           *float64         `json:"distanceKm"`
	Reasoning            string           `json:"reasoning"`
	Unknowns             []string         `json:"unknowns"`
	EvidenceRefs         []string         `json:"evidenceRefs"`
	Signals              CandidateSignals `json:"signals"`
}

// Factor returns the named factor if present.
func (r ScoredRecommendation) Factor(name string) (MatchFactor, bool) {
	for _, f := range r.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return MatchFactor{}, false
}
