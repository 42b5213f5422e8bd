// internal/matching/reorder_test.go
package matching

import (
	"testing"
	"time"

	"care-match-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedReorderer() *Reorderer {
	r := NewReorderer()
	r.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return r
}

func scoredPair(t *testing.T) []models.ScoredRecommendation {
	t.Helper()
	spec := baseSpec()
	spec.Origin = &models.GeoPoint{Lat: 0, Lng: 0}

	near := verifiedCandidate("near")
	near.Candidate.Location = &models.GeoPoint{Lat: 0.02, Lng: 0}

	calmFit := verifiedCandidate("pbs")
	calmFit.Candidate.Location = &models.GeoPoint{Lat: 0.05, Lng: 0}
	calmFit.SelectedWorker = &models.WorkerCandidate{
		ID:           "w-pbs",
		Name:         "Jo",
		Capabilities: []string{"positive_behaviour_support", "sensory_support"},
		CanDrive:     true,
	}

	rc := &models.DynamicRiskContext{EmotionalState: models.EmotionalStateCalm}
	return Rank(NewScorer().ScoreAll(spec, []models.VerifiedCandidate{near, calmFit}, rc))
}

func TestReorder_EmptyInput(t *testing.T) {
	result := fixedReorderer().Reorder(nil, models.DynamicRiskContext{}, models.UrgencyStandard)

	assert.Empty(t, result.Recommendations)
	assert.Empty(t, result.PositionChanges)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), result.ReorderedAt)
}

func TestReorder_SingleCandidate(t *testing.T) {
	recs := scoredPair(t)[:1]
	result := fixedReorderer().Reorder(recs, models.DynamicRiskContext{EmotionalState: models.EmotionalStateAnxious}, models.UrgencyUrgent)

	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, 1, result.Recommendations[0].Rank)
}

func TestReorder_OnlyContextSensitiveFactorsChange(t *testing.T) {
	before := scoredPair(t)
	rc := models.DynamicRiskContext{
		EmotionalState:          models.EmotionalStateOverwhelmed,
		NeedsUrgency:            models.NeedsUrgencyHigh,
		FunctionalNeeds:         []string{"behaviour"},
		PriorPositiveExperience: true,
	}

	result := fixedReorderer().Reorder(before, rc, models.UrgencyStandard)
	require.Len(t, result.Recommendations, len(before))

	prior := make(map[string]models.ScoredRecommendation)
	for _, r := range before {
		prior[r.OrganisationID] = r
	}

	changing := map[string]bool{
		models.FactorPreferenceAlignment: true,
		models.FactorUrgencyBonus:        true,
		models.FactorEmotionalComfort:    true,
	}
	for _, after := range result.Recommendations {
		old, ok := prior[after.OrganisationID]
		require.True(t, ok, "candidate set is preserved")
		require.Len(t, after.Factors, len(old.Factors))
		for i, f := range after.Factors {
			assert.Equal(t, old.Factors[i].Name, f.Name)
			if !changing[f.Name] {
				assert.Equal(t, old.Factors[i], f, f.Name)
			}
		}
		assert.Equal(t, old.Confidence, after.Confidence)
		assert.Equal(t, old.MatchedCapabilities, after.MatchedCapabilities)
		assert.Equal(t, old.DistanceKm, after.DistanceKm)
	}
}

func TestReorder_StressedContextPromotesComfortFit(t *testing.T) {
	before := scoredPair(t)
	require.Equal(t, "near", before[0].OrganisationID)

	rc := models.DynamicRiskContext{
		EmotionalState:          models.EmotionalStateOverwhelmed,
		FunctionalNeeds:         []string{"behaviour", "sensory"},
		PriorPositiveExperience: true,
	}
	result := fixedReorderer().Reorder(before, rc, models.UrgencyUrgent)

	assert.Equal(t, "pbs", result.Recommendations[0].OrganisationID)
	assert.Equal(t, 1, result.Recommendations[0].Rank)
	assert.Equal(t, 2, result.Recommendations[1].Rank)
	assert.ElementsMatch(t, []string{"pbs", "near"}, result.PositionChanges)
	assert.Contains(t, result.ChangesApplied, "urgency: urgent")
	assert.Contains(t, result.ChangesApplied, "emotional state: overwhelmed")
	assert.Contains(t, result.ChangesApplied, "2 of 2 recommendations changed position")

	top := result.Recommendations[0]
	urg, _ := top.Factor(models.FactorUrgencyBonus)
	assert.Equal(t, 1.0, urg.Score)
	pref, _ := top.Factor(models.FactorPreferenceAlignment)
	assert.Equal(t, 1.0, pref.Score)
}

func TestReorder_MissingFactorsDefaultToNeutral(t *testing.T) {
	recs := []models.ScoredRecommendation{{
		OrganisationID: "bare",
		Rank:           1,
		Confidence:     models.ConfidenceLikely,
		Factors: []models.MatchFactor{
			{Name: models.FactorProximity, Score: 1, Explanation: "1.0 km away"},
		},
	}}

	result := fixedReorderer().Reorder(recs, models.DynamicRiskContext{}, "")

	require.Len(t, result.Recommendations, 1)
	out := result.Recommendations[0]
	assert.Equal(t, models.ScoringModeContextAware, out.ScoringMode)
	require.Len(t, out.Factors, 8)
	assert.Equal(t, append(append([]string{}, models.BaseFactorNames...), models.ContextFactorNames...), factorNames(out.Factors))
	prox, _ := out.Factor(models.FactorProximity)
	assert.Equal(t, models.MatchFactor{Name: models.FactorProximity, Score: 1, Explanation: "1.0 km away"}, prox)
	for _, name := range []string{models.FactorCapabilityMatch, models.FactorAvailability, models.FactorVerificationStatus, models.FactorReliability} {
		f, ok := out.Factor(name)
		require.True(t, ok, name)
		assert.Equal(t, 0.5, f.Score, name)
	}

	// base (1 + 0.5*3)/4 = 0.625; pref 0.7, rel 0.5, urgency standard unavailable 0.5, calm 0.7
	want := (0.625 + 0.7*0.4 + 0.5*0.3 + 0.5*0.2 + 0.7*0.1) / 2.0 * 100
	assert.InDelta(t, want, out.Score, 0.01)
	assert.Empty(t, result.PositionChanges)
}

func TestReorder_WeightOverridesReported(t *testing.T) {
	zero := 0.0
	before := scoredPair(t)
	rc := models.DynamicRiskContext{PreferenceWeights: &models.PreferenceWeights{EmotionalComfort: &zero}}

	result := fixedReorderer().Reorder(before, rc, models.UrgencyStandard)

	assert.Contains(t, result.ChangesApplied, "custom preference weights applied")
	assert.Equal(t, 0.0, result.Recommendations[0].Breakdown.Weights.EmotionalComfort)
}
