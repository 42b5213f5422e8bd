// internal/matching/reorder.go
package matching

import (
	"fmt"
	"time"

	"care-match-workers/internal/models"
)

const neutralFactorScore = 0.5

// Reorderer rescores stored recommendations against a new dynamic context.
// It recomputes only preference alignment, urgency bonus and emotional
// comfort, and performs no store or search calls.
type Reorderer struct {
	weights models.ScoringWeights
	now     func() time.Time
}

func NewReorderer() *Reorderer {
	return &Reorderer{weights: DefaultWeights, now: time.Now}
}

func (r *Reorderer) Reorder(recs []models.ScoredRecommendation, rc models.DynamicRiskContext, urgency models.Urgency) models.ReorderResult {
	result := models.ReorderResult{
		Recommendations: []models.ScoredRecommendation{},
		ReorderedAt:     r.now().UTC(),
		ChangesApplied:  []string{},
		PositionChanges: []string{},
	}
	if len(recs) == 0 {
		return result
	}

	if urgency == "" {
		urgency = models.UrgencyStandard
	}
	effective := EffectiveUrgency(urgency, &rc)
	weights := ResolveWeights(r.weights, &rc)

	previous := make(map[string]int, len(recs))
	rescored := make([]models.ScoredRecommendation, len(recs))
	for i, rec := range recs {
		prior := rec.Rank
		if prior <= 0 {
			prior = i + 1
		}
		previous[positionKey(rec)] = prior
		rescored[i] = r.rescore(rec, &rc, effective, weights)
	}

	ranked := Rank(rescored)

	for _, rec := range ranked {
		if previous[positionKey(rec)] != rec.Rank {
			result.PositionChanges = append(result.PositionChanges, rec.OrganisationID)
		}
	}

	result.Recommendations = ranked
	result.ChangesApplied = append(result.ChangesApplied,
		fmt.Sprintf("urgency: %s", effective),
		fmt.Sprintf("emotional state: %s", rc.EmotionalState.Label()),
	)
	if rc.PreferenceWeights != nil {
		result.ChangesApplied = append(result.ChangesApplied, "custom preference weights applied")
	}
	result.ChangesApplied = append(result.ChangesApplied,
		fmt.Sprintf("%d of %d recommendations changed position", len(result.PositionChanges), len(ranked)))

	return result
}

func (r *Reorderer) rescore(rec models.ScoredRecommendation, rc *models.DynamicRiskContext, urgency models.Urgency, weights models.ScoringWeights) models.ScoredRecommendation {
	var base float64
	for _, name := range models.BaseFactorNames {
		score := neutralFactorScore
		if f, ok := rec.Factor(name); ok {
			score = f.Score
		}
		base += score
	}
	base /= float64(len(models.BaseFactorNames))

	available := rec.Signals.AvailabilityConfirmed
	if f, ok := rec.Factor(models.FactorAvailability); ok && f.Score >= 1 {
		available = true
	}

	fresh := map[string]models.MatchFactor{
		models.FactorPreferenceAlignment: preferenceAlignment(rec.Signals, rec.OrganisationID, rc),
		models.FactorUrgencyBonus:        urgencyBonus(urgency, available),
		models.FactorEmotionalComfort:    emotionalComfort(rec.Signals, rec.OrganisationID, rc),
	}

	stored := make(map[string]models.MatchFactor, len(rec.Factors))
	for _, f := range rec.Factors {
		stored[f.Name] = f
	}

	// Canonical context-aware order: stored base factors, stored reliability,
	// the three recomputed factors. Anything absent is neutral.
	names := append(append([]string{}, models.BaseFactorNames...), models.ContextFactorNames...)
	factors := make([]models.MatchFactor, 0, len(names))
	for _, name := range names {
		if nf, ok := fresh[name]; ok {
			factors = append(factors, nf)
			continue
		}
		if f, ok := stored[name]; ok {
			factors = append(factors, f)
			continue
		}
		factors = append(factors, models.MatchFactor{
			Name:        name,
			Score:       neutralFactorScore,
			Explanation: "no prior " + name + " score",
		})
	}

	out := rec
	out.Factors = factors
	out.ScoringMode = models.ScoringModeContextAware
	out.Score, out.Breakdown = combine(base, factors, weights)
	out.Reasoning = BuildReasoning(factors, rec.Confidence)
	return out
}

// positionKey identifies a recommendation across a reorder. An organisation
// may appear once per worker.
func positionKey(rec models.ScoredRecommendation) string {
	return rec.OrganisationID + "/" + rec.WorkerID
}
