// internal/matching/scorer_test.go
package matching

import (
	"strings"
	"testing"

	"care-match-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSpec() models.MatchSpec {
	return models.MatchSpec{
		RequestID:     "req-1",
		ParticipantID: "participant-1",
		RequestType:   models.RequestTypeCare,
		Urgency:       models.UrgencyStandard,
		MaxDistanceKm: 25,
		Window:        testWindow(),
	}
}

func verifiedCandidate(id string) models.VerifiedCandidate {
	return models.VerifiedCandidate{
		Candidate: models.Candidate{
			ID:               id,
			Name:             "Org " + id,
			Type:             models.OrganisationTypeCare,
			ReliabilityScore: 80,
			Verified:         true,
			Active:           true,
		},
		Verification: models.VerificationResult{
			AvailabilityConfirmed: true,
			VehicleAvailable:      models.NotApplicable,
			ClearanceCurrent:      models.Yes,
			PoolAllowed:           true,
			Unknowns:              []string{},
		},
	}
}

func factorNames(factors []models.MatchFactor) []string {
	names := make([]string, len(factors))
	for i, f := range factors {
		names[i] = f.Name
	}
	return names
}

func TestScorer_BaseOnlyMode(t *testing.T) {
	rec := NewScorer().Score(baseSpec(), verifiedCandidate("org-1"), nil)

	assert.Equal(t, models.ScoringModeBase, rec.ScoringMode)
	assert.Equal(t, models.BaseFactorNames, factorNames(rec.Factors))
	// proximity 0.5 (no origin), capability 1, availability 1, verification 1
	assert.InDelta(t, 87.5, rec.Score, 0.001)
	assert.InDelta(t, 87.5, rec.Breakdown.BaseMatch, 0.001)
	assert.Equal(t, 1.0, rec.Breakdown.Weights.BaseMatch)
	assert.Equal(t, models.ConfidenceVerified, rec.Confidence)
	assert.Equal(t, []string{"organisation:org-1"}, rec.EvidenceRefs)
}

func TestScorer_ContextAwareMode(t *testing.T) {
	rc := &models.DynamicRiskContext{EmotionalState: models.EmotionalStateCalm}

	rec := NewScorer().Score(baseSpec(), verifiedCandidate("org-1"), rc)

	require.Len(t, rec.Factors, 8)
	assert.Equal(t, append(append([]string{}, models.BaseFactorNames...), models.ContextFactorNames...), factorNames(rec.Factors))
	assert.Equal(t, models.ScoringModeContextAware, rec.ScoringMode)

	// (0.875 + 0.7*0.4 + 0.8*0.3 + 0.8*0.2 + 0.7*0.1) / 2.0
	assert.InDelta(t, 81.25, rec.Score, 0.001)
	assert.InDelta(t, 87.5, rec.Breakdown.BaseMatch, 0.001)
	assert.InDelta(t, 70, rec.Breakdown.PreferenceAlignment, 0.001)
	assert.InDelta(t, 80, rec.Breakdown.Reliability, 0.001)
	assert.InDelta(t, 80, rec.Breakdown.UrgencyBonus, 0.001)
	assert.InDelta(t, 70, rec.Breakdown.EmotionalComfort, 0.001)
	assert.Equal(t, DefaultWeights, rec.Breakdown.Weights)
}

func TestScorer_CloserCandidateScoresHigher(t *testing.T) {
	spec := baseSpec()
	spec.Origin = &models.GeoPoint{Lat: -33.8688, Lng: 151.2093}

	near := verifiedCandidate("near")
	near.Candidate.Location = &models.GeoPoint{Lat: -33.8688 + 0.018, Lng: 151.2093}
	far := verifiedCandidate("far")
	far.Candidate.Location = &models.GeoPoint{Lat: -33.8688 + 0.18, Lng: 151.2093}

	scorer := NewScorer()
	for _, rc := range []*models.DynamicRiskContext{nil, {EmotionalState: models.EmotionalStateCalm}} {
		nearRec := scorer.Score(spec, near, rc)
		farRec := scorer.Score(spec, far, rc)

		require.NotNil(t, nearRec.DistanceKm)
		require.NotNil(t, farRec.DistanceKm)
		assert.InDelta(t, 2.0, *nearRec.DistanceKm, 0.1)
		assert.InDelta(t, 20.0, *farRec.DistanceKm, 0.2)
		assert.Greater(t, nearRec.Score, farRec.Score)
	}
}

func TestProximity(t *testing.T) {
	tests := []struct {
		name     string
		distance *float64
		max      float64
		want     float64
	}{
		{"unknown distance", nil, 25, 0.5},
		{"at origin", floatPtr(0), 25, 1},
		{"half way", floatPtr(12.5), 25, 0.5},
		{"beyond radius", floatPtr(40), 25, 0},
		{"default radius", floatPtr(12.5), 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := proximity(tt.distance, tt.max)
			assert.Equal(t, models.FactorProximity, f.Name)
			assert.InDelta(t, tt.want, f.Score, 0.0001)
		})
	}
}

func TestCapabilityMatch(t *testing.T) {
	t.Run("nothing required", func(t *testing.T) {
		f, caps, types := capabilityMatch(baseSpec(), []string{"personal_care"})
		assert.Equal(t, 1.0, f.Score)
		assert.Equal(t, "no specific capabilities required", f.Explanation)
		assert.Empty(t, caps)
		assert.Empty(t, types)
	})

	t.Run("matched subsets are the intersection", func(t *testing.T) {
		spec := baseSpec()
		spec.ServiceTypes = []string{"personal_care"}
		spec.Requirements.RequiredCapabilities = []string{"manual_handling", "medication_administration"}

		vc := verifiedCandidate("org-1")
		vc.Candidate.Capabilities = []string{"manual_handling", "dementia_care"}
		vc.Candidate.ServiceTypes = []string{"personal_care", "domestic_assistance"}

		rec := NewScorer().Score(spec, vc, nil)
		f, ok := rec.Factor(models.FactorCapabilityMatch)
		require.True(t, ok)
		assert.InDelta(t, 2.0/3.0, f.Score, 0.0001)
		assert.Equal(t, []string{"manual_handling"}, rec.MatchedCapabilities)
		assert.Equal(t, []string{"personal_care"}, rec.MatchedServiceTypes)
	})

	t.Run("selected worker capabilities count", func(t *testing.T) {
		spec := baseSpec()
		spec.Requirements.RequiredCapabilities = []string{"medication_administration"}

		vc := verifiedCandidate("org-1")
		vc.SelectedWorker = &models.WorkerCandidate{ID: "w-1", Name: "Sam", Capabilities: []string{"medication_administration"}}

		rec := NewScorer().Score(spec, vc, nil)
		f, _ := rec.Factor(models.FactorCapabilityMatch)
		assert.Equal(t, 1.0, f.Score)
		assert.Equal(t, []string{"medication_administration"}, rec.MatchedCapabilities)
		assert.Equal(t, "w-1", rec.WorkerID)
		assert.Contains(t, rec.EvidenceRefs, "worker:w-1")
	})
}

func TestVerificationStatus(t *testing.T) {
	assert.Equal(t, 1.0, verificationStatus(true, true).Score)
	assert.Equal(t, 0.7, verificationStatus(true, false).Score)
	assert.Equal(t, 0.4, verificationStatus(false, true).Score)
	assert.Equal(t, 0.4, verificationStatus(false, false).Score)
}

func TestUrgencyBonus(t *testing.T) {
	tests := []struct {
		urgency   models.Urgency
		available bool
		want      float64
	}{
		{models.UrgencyUrgent, true, 1.0},
		{models.UrgencyUrgent, false, 0.3},
		{models.UrgencyEmergency, true, 1.0},
		{models.UrgencyStandard, true, 0.8},
		{models.UrgencyStandard, false, 0.5},
		{models.UrgencySoon, false, 0.5},
		{models.UrgencyFlexible, true, 0.6},
		{models.UrgencyFlexible, false, 0.6},
	}
	for _, tt := range tests {
		t.Run(string(tt.urgency), func(t *testing.T) {
			assert.Equal(t, tt.want, urgencyBonus(tt.urgency, tt.available).Score)
		})
	}
}

func TestEffectiveUrgency(t *testing.T) {
	assert.Equal(t, models.UrgencyStandard, EffectiveUrgency(models.UrgencyStandard, nil))
	assert.Equal(t, models.UrgencyEmergency, EffectiveUrgency(models.UrgencyStandard, &models.DynamicRiskContext{NeedsUrgency: models.NeedsUrgencyCritical}))
	assert.Equal(t, models.UrgencyUrgent, EffectiveUrgency(models.UrgencyUrgent, &models.DynamicRiskContext{NeedsUrgency: models.NeedsUrgencyLow}))
	assert.Equal(t, models.UrgencyRoutine, EffectiveUrgency(models.UrgencyRoutine, &models.DynamicRiskContext{}))
}

func TestPreferenceAlignment(t *testing.T) {
	sig := models.CandidateSignals{Capabilities: []string{"mobility_support", "sensory_support"}}

	t.Run("nothing expressed", func(t *testing.T) {
		f := preferenceAlignment(sig, "org-1", &models.DynamicRiskContext{})
		assert.Equal(t, 0.7, f.Score)
		assert.Equal(t, "no preferences expressed", f.Explanation)
	})

	t.Run("functional needs mapped to capabilities", func(t *testing.T) {
		rc := &models.DynamicRiskContext{FunctionalNeeds: []string{"mobility", "medication"}}
		assert.Equal(t, 0.5, preferenceAlignment(sig, "org-1", rc).Score)
	})

	t.Run("sensory and continuity sub-requirements", func(t *testing.T) {
		rc := &models.DynamicRiskContext{
			EmotionalState:        models.EmotionalStateOverwhelmed,
			WantsContinuityWorker: true,
			OutcomeHistory: map[string]models.OutcomeHistory{
				"org-1": {CompletedBookings: 4, PositiveRate: 0.9},
			},
		}
		assert.Equal(t, 1.0, preferenceAlignment(sig, "org-1", rc).Score)
		assert.Equal(t, 0.5, preferenceAlignment(sig, "org-2", rc).Score)
	})
}

func TestReliability(t *testing.T) {
	assert.InDelta(t, 0.8, reliability(80, "org-1", &models.DynamicRiskContext{}).Score, 0.0001)
	assert.Equal(t, 1.0, reliability(140, "org-1", &models.DynamicRiskContext{}).Score)

	rc := &models.DynamicRiskContext{OutcomeHistory: map[string]models.OutcomeHistory{
		"org-1": {CompletedBookings: 3, PositiveRate: 0.9},
		"org-2": {CompletedBookings: 0, PositiveRate: 1},
	}}
	assert.InDelta(t, 0.98, reliability(80, "org-1", rc).Score, 0.0001)
	assert.InDelta(t, 0.8, reliability(80, "org-2", rc).Score, 0.0001)
	assert.Equal(t, 1.0, reliability(100, "org-1", rc).Score)
}

func TestReliability_OutOfRangePositiveRate(t *testing.T) {
	rc := &models.DynamicRiskContext{OutcomeHistory: map[string]models.OutcomeHistory{
		"org-low":  {CompletedBookings: 2, PositiveRate: -2},
		"org-high": {CompletedBookings: 2, PositiveRate: 3},
	}}

	low := reliability(0, "org-low", rc).Score
	assert.InDelta(t, 0.15, low, 0.0001)
	assert.GreaterOrEqual(t, low, 0.0)
	assert.InDelta(t, 0.45, reliability(0, "org-high", rc).Score, 0.0001)
}

func TestEmotionalComfort(t *testing.T) {
	stressed := &models.DynamicRiskContext{EmotionalState: models.EmotionalStateAnxious, PriorPositiveExperience: true}
	full := models.CandidateSignals{WorkerCapabilities: []string{"positive_behaviour_support"}, WorkerCanDrive: true}

	assert.InDelta(t, 1.0, emotionalComfort(full, "org-1", stressed).Score, 0.0001)
	assert.InDelta(t, 0.5, emotionalComfort(models.CandidateSignals{}, "org-1", &models.DynamicRiskContext{EmotionalState: models.EmotionalStateStressed}).Score, 0.0001)
	assert.InDelta(t, 0.7, emotionalComfort(models.CandidateSignals{}, "org-1", &models.DynamicRiskContext{}).Score, 0.0001)

	familiar := &models.DynamicRiskContext{
		EmotionalState: models.EmotionalStateCalm,
		OutcomeHistory: map[string]models.OutcomeHistory{"org-1": {CompletedBookings: 2}},
	}
	assert.InDelta(t, 0.9, emotionalComfort(models.CandidateSignals{}, "org-1", familiar).Score, 0.0001)
}

func TestConfidenceFor(t *testing.T) {
	ok := models.VerificationResult{AvailabilityConfirmed: true, VehicleAvailable: models.Yes, ClearanceCurrent: models.Yes, PoolAllowed: true}

	tests := []struct {
		name     string
		mutate   func(v *models.VerificationResult)
		verified bool
		want     models.Confidence
	}{
		{"all confirmed", func(*models.VerificationResult) {}, true, models.ConfidenceVerified},
		{"not applicable checks", func(v *models.VerificationResult) {
			v.VehicleAvailable, v.ClearanceCurrent = models.NotApplicable, models.NotApplicable
		}, true, models.ConfidenceVerified},
		{"unverified organisation", func(*models.VerificationResult) {}, false, models.ConfidenceLikely},
		{"unknown reason", func(v *models.VerificationResult) { v.Unknowns = []string{models.UnknownPoolMembership} }, true, models.ConfidenceNeedsVerification},
		{"availability unconfirmed", func(v *models.VerificationResult) { v.AvailabilityConfirmed = false }, true, models.ConfidenceNeedsVerification},
		{"vehicle unavailable", func(v *models.VerificationResult) { v.VehicleAvailable = models.No }, true, models.ConfidenceNeedsVerification},
		{"clearance lapsed", func(v *models.VerificationResult) { v.ClearanceCurrent = models.No }, false, models.ConfidenceNeedsVerification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ok
			tt.mutate(&v)
			assert.Equal(t, tt.want, ConfidenceFor(v, tt.verified))
		})
	}
}

func TestBuildReasoning(t *testing.T) {
	vc := verifiedCandidate("org-1")
	vc.Verification.AvailabilityConfirmed = false

	rec := NewScorer().Score(baseSpec(), vc, nil)

	assert.Equal(t, models.ConfidenceNeedsVerification, rec.Confidence)
	assert.Contains(t, rec.Reasoning, "⚠ availability not confirmed")
	assert.True(t, strings.HasSuffix(rec.Reasoning, confidenceSentences[models.ConfidenceNeedsVerification]))
	assert.True(t, strings.HasPrefix(rec.Reasoning, "no specific capabilities required; verified organisation"))
}

func TestBuildReasoning_LimitsStrengths(t *testing.T) {
	factors := []models.MatchFactor{
		{Name: "a", Score: 1, Explanation: "a"},
		{Name: "b", Score: 0.9, Explanation: "b"},
		{Name: "c", Score: 0.8, Explanation: "c"},
		{Name: "d", Score: 0.7, Explanation: "d"},
		{Name: "e", Score: 0.75, Explanation: "e"},
		{Name: "f", Score: 0.6, Explanation: "f"},
	}
	got := BuildReasoning(factors, models.ConfidenceVerified)
	assert.Equal(t, "a; b; c; d. "+confidenceSentences[models.ConfidenceVerified], got)
}

func TestResolveWeights(t *testing.T) {
	zero, half, negative := 0.0, 0.5, -1.0
	rc := &models.DynamicRiskContext{PreferenceWeights: &models.PreferenceWeights{
		PreferenceAlignment: &half,
		EmotionalComfort:    &zero,
		Reliability:         &negative,
	}}

	w := ResolveWeights(DefaultWeights, rc)
	assert.Equal(t, 1.0, w.BaseMatch)
	assert.Equal(t, 0.5, w.PreferenceAlignment)
	assert.Equal(t, 0.3, w.Reliability)
	assert.Equal(t, 0.2, w.UrgencyBonus)
	assert.Equal(t, 0.0, w.EmotionalComfort)
	assert.Equal(t, DefaultWeights, ResolveWeights(DefaultWeights, nil))
}

func TestScorer_ScoreAlwaysInRange(t *testing.T) {
	spec := baseSpec()
	spec.Origin = &models.GeoPoint{Lat: 0, Lng: 0}
	spec.ServiceTypes = []string{"transport"}
	spec.Requirements.RequiredCapabilities = []string{"wheelchair_transfer"}

	big := 50.0
	contexts := []*models.DynamicRiskContext{
		nil,
		{},
		{EmotionalState: models.EmotionalStateDistressed, NeedsUrgency: models.NeedsUrgencyCritical, PriorPositiveExperience: true},
		{PreferenceWeights: &models.PreferenceWeights{Reliability: &big, UrgencyBonus: &big}},
	}
	scorer := NewScorer()
	for _, reliabilityRaw := range []float64{-20, 0, 55, 100, 400} {
		for _, lat := range []float64{0, 0.1, 1, 10} {
			for _, rc := range contexts {
				vc := verifiedCandidate("org")
				vc.Candidate.ReliabilityScore = reliabilityRaw
				vc.Candidate.Location = &models.GeoPoint{Lat: lat, Lng: 0}
				vc.Candidate.Verified = lat < 1
				vc.Verification.AvailabilityConfirmed = lat < 5

				rec := scorer.Score(spec, vc, rc)
				assert.GreaterOrEqual(t, rec.Score, 0.0)
				assert.LessOrEqual(t, rec.Score, 100.0)
				for _, f := range rec.Factors {
					assert.GreaterOrEqual(t, f.Score, 0.0, f.Name)
					assert.LessOrEqual(t, f.Score, 1.0, f.Name)
				}
			}
		}
	}
}
