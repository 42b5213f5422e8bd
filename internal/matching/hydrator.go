// internal/matching/hydrator.go
package matching

import "care-match-workers/internal/models"

var confidenceColours = map[models.Confidence]string{
	models.ConfidenceVerified:          "green",
	models.ConfidenceLikely:            "amber",
	models.ConfidenceNeedsVerification: "red",
}

const (
	BadgeVerified   = "Verified organisation"
	BadgeUnverified = "Unverified organisation"
)

// EvidenceKey is the key used by the evidence count map.
func EvidenceKey(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// HydrateAll builds display cards for a bucket. It performs no lookups.
func HydrateAll(recs []models.ScoredRecommendation, verified map[string]models.VerifiedCandidate, evidence map[string]int) []models.RecommendationCard {
	cards := make([]models.RecommendationCard, 0, len(recs))
	for _, rec := range recs {
		cards = append(cards, Hydrate(rec, verified, evidence))
	}
	return cards
}

// Hydrate merges a recommendation with its verified candidate and evidence
// counts. Missing entries give default sub-objects.
func Hydrate(rec models.ScoredRecommendation, verified map[string]models.VerifiedCandidate, evidence map[string]int) models.RecommendationCard {
	vc, found := verified[rec.OrganisationID]

	org := models.OrganisationCard{
		ID:            rec.OrganisationID,
		Name:          rec.OrganisationName,
		Type:          rec.OrganisationType,
		Verified:      rec.OrganisationVerified,
		ServiceTypes:  []string{},
		Capabilities:  []string{},
		EvidenceCount: evidence[EvidenceKey("organisation", rec.OrganisationID)],
	}
	if found {
		if vc.Candidate.Name != "" {
			org.Name = vc.Candidate.Name
		}
		org.Verified = vc.Candidate.Verified
		org.ServiceTypes = append(org.ServiceTypes, vc.Candidate.ServiceTypes...)
		org.Capabilities = append(org.Capabilities, vc.Candidate.Capabilities...)
	}

	var worker *models.WorkerCard
	if rec.WorkerID != "" {
		worker = &models.WorkerCard{
			ID:            rec.WorkerID,
			Name:          rec.WorkerName,
			Capabilities:  []string{},
			Languages:     []string{},
			EvidenceCount: evidence[EvidenceKey("worker", rec.WorkerID)],
		}
		if w := findWorker(vc, rec.WorkerID); w != nil {
			worker.Name = w.Name
			worker.CanDrive = w.CanDrive
			worker.Capabilities = append(worker.Capabilities, w.Capabilities...)
			worker.Languages = append(worker.Languages, w.Languages...)
		}
	}

	label := org.Name
	if worker != nil && worker.Name != "" {
		label = org.Name + " – " + worker.Name
	}

	badge := BadgeUnverified
	if org.Verified {
		badge = BadgeVerified
	}

	colour, ok := confidenceColours[rec.Confidence]
	if !ok {
		colour = confidenceColours[models.ConfidenceNeedsVerification]
	}

	return models.RecommendationCard{
		ScoredRecommendation: rec,
		Label:                label,
		ConfidenceColour:     colour,
		VerificationBadge:    badge,
		Organisation:         org,
		Worker:               worker,
	}
}

func findWorker(vc models.VerifiedCandidate, workerID string) *models.WorkerCandidate {
	if vc.SelectedWorker != nil && vc.SelectedWorker.ID == workerID {
		return vc.SelectedWorker
	}
	for i := range vc.Candidate.Workers {
		if vc.Candidate.Workers[i].ID == workerID {
			return &vc.Candidate.Workers[i]
		}
	}
	return nil
}
