// internal/matching/scorer.go
package matching

import (
	"fmt"
	"math"
	"strings"

	"care-match-workers/internal/models"
)

// DefaultWeights is the weight vector of the context-aware formula. Base match
// always carries weight 1.
var DefaultWeights = models.ScoringWeights{
	BaseMatch:           1.0,
	PreferenceAlignment: 0.4,
	Reliability:         0.3,
	UrgencyBonus:        0.2,
	EmotionalComfort:    0.1,
}

const (
	capabilityPositiveBehaviour = "positive_behaviour_support"
	capabilitySensorySupport    = "sensory_support"
)

// functionalNeedCapabilities maps a participant's functional need onto the
// capability that satisfies it. Unmapped needs match a capability of the same name.
var functionalNeedCapabilities = map[string]string{
	"mobility":      "mobility_support",
	"wheelchair":    "wheelchair_transfer",
	"personal_care": "personal_care",
	"behaviour":     capabilityPositiveBehaviour,
	"medication":    "medication_administration",
	"communication": "communication_support",
	"sensory":       capabilitySensorySupport,
}

type Scorer struct {
	weights models.ScoringWeights
}

func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights}
}

// ScoreAll scores every verified candidate. A nil context selects base-only mode.
// Ranks are left at zero for the Ranker.
func (s *Scorer) ScoreAll(spec models.MatchSpec, candidates []models.VerifiedCandidate, rc *models.DynamicRiskContext) []models.ScoredRecommendation {
	out := make([]models.ScoredRecommendation, 0, len(candidates))
	for _, vc := range candidates {
		out = append(out, s.Score(spec, vc, rc))
	}
	return out
}

func (s *Scorer) Score(spec models.MatchSpec, vc models.VerifiedCandidate, rc *models.DynamicRiskContext) models.ScoredRecommendation {
	org := vc.Candidate
	worker := vc.SelectedWorker

	rec := models.ScoredRecommendation{
		OrganisationID:       org.ID,
		OrganisationName:     org.Name,
		OrganisationType:     org.Type,
		OrganisationVerified: org.Verified,
		Unknowns:             append([]string{}, vc.Verification.Unknowns...),
		EvidenceRefs:         []string{"organisation:" + org.ID},
	}
	if worker != nil {
		rec.WorkerID = worker.ID
		rec.WorkerName = worker.Name
		rec.EvidenceRefs = append(rec.EvidenceRefs, "worker:"+worker.ID)
	}
	if spec.Requirements.WheelchairAccessibleVehicle && vc.Verification.VehicleAvailable == models.Yes && len(org.VehicleIDs) > 0 {
		rec.VehicleID = org.VehicleIDs[0]
	}

	location := org.Location
	if location == nil && worker != nil {
		location = worker.Location
	}
	distance := DistanceKm(spec.Origin, location)
	if distance != nil {
		rounded := round2(*distance)
		rec.DistanceKm = &rounded
	}

	combined := combinedCapabilities(org, worker)
	rec.Signals = models.CandidateSignals{
		Capabilities:          combined,
		AnyWorkerCanDrive:     org.AnyWorkerCanDrive(),
		AvailabilityConfirmed: vc.Verification.AvailabilityConfirmed,
		ReliabilityRaw:        org.ReliabilityScore,
		WorkerCapabilities:    []string{},
	}
	if worker != nil {
		rec.Signals.WorkerCanDrive = worker.CanDrive
		rec.Signals.WorkerCapabilities = append(rec.Signals.WorkerCapabilities, worker.Capabilities...)
	}

	capFactor, matchedCaps, matchedTypes := capabilityMatch(spec, combined)
	rec.MatchedCapabilities = matchedCaps
	rec.MatchedServiceTypes = matchedTypes

	rec.Factors = []models.MatchFactor{
		proximity(distance, spec.MaxDistanceKm),
		capFactor,
		availability(vc.Verification.AvailabilityConfirmed),
		verificationStatus(org.Verified, vc.Verification.PoolAllowed),
	}
	base := baseMatch(rec.Factors)

	if rc == nil {
		rec.ScoringMode = models.ScoringModeBase
		rec.Score = clampScore(base * 100)
		rec.Breakdown = models.ScoreBreakdown{
			BaseMatch: round2(base * 100),
			Weights:   models.ScoringWeights{BaseMatch: 1},
		}
	} else {
		rec.ScoringMode = models.ScoringModeContextAware
		rec.Factors = append(rec.Factors,
			preferenceAlignment(rec.Signals, org.ID, rc),
			reliability(org.ReliabilityScore, org.ID, rc),
			urgencyBonus(EffectiveUrgency(spec.Urgency, rc), vc.Verification.AvailabilityConfirmed),
			emotionalComfort(rec.Signals, org.ID, rc),
		)
		rec.Score, rec.Breakdown = combine(base, rec.Factors, ResolveWeights(s.weights, rc))
	}

	rec.Confidence = ConfidenceFor(vc.Verification, org.Verified)
	rec.Reasoning = BuildReasoning(rec.Factors, rec.Confidence)
	return rec
}

// ResolveWeights applies the context's per-dimension overrides. Negative overrides are ignored.
func ResolveWeights(defaults models.ScoringWeights, rc *models.DynamicRiskContext) models.ScoringWeights {
	w := defaults
	w.BaseMatch = 1
	if rc == nil || rc.PreferenceWeights == nil {
		return w
	}
	pw := rc.PreferenceWeights
	override := func(dst *float64, v *float64) {
		if v != nil && *v >= 0 {
			*dst = *v
		}
	}
	override(&w.PreferenceAlignment, pw.PreferenceAlignment)
	override(&w.Reliability, pw.Reliability)
	override(&w.UrgencyBonus, pw.UrgencyBonus)
	override(&w.EmotionalComfort, pw.EmotionalComfort)
	return w
}

// EffectiveUrgency is the more pressing of the request urgency and the context's needs urgency.
func EffectiveUrgency(u models.Urgency, rc *models.DynamicRiskContext) models.Urgency {
	if rc == nil {
		return u
	}
	if mapped := rc.NeedsUrgency.AsUrgency(); mapped != "" && mapped.Rank() < u.Rank() {
		return mapped
	}
	return u
}

// ConfidenceFor classifies a verification outcome. It never looks at the score.
func ConfidenceFor(v models.VerificationResult, organisationVerified bool) models.Confidence {
	switch {
	case len(v.Unknowns) > 0,
		!v.AvailabilityConfirmed,
		v.VehicleAvailable == models.No,
		v.ClearanceCurrent == models.No:
		return models.ConfidenceNeedsVerification
	case !organisationVerified:
		return models.ConfidenceLikely
	default:
		return models.ConfidenceVerified
	}
}

var confidenceSentences = map[models.Confidence]string{
	models.ConfidenceVerified:          "All hard constraints are confirmed for this provider.",
	models.ConfidenceLikely:            "Constraints are confirmed but the organisation is not yet verified.",
	models.ConfidenceNeedsVerification: "Some details need to be confirmed before booking.",
}

// BuildReasoning summarises strong factors, warns on weak ones and closes with the confidence tier.
func BuildReasoning(factors []models.MatchFactor, confidence models.Confidence) string {
	var strengths, warnings []string
	for _, f := range factors {
		switch {
		case f.Score >= 0.7:
			if len(strengths) < 4 {
				strengths = append(strengths, f.Explanation)
			}
		case f.Score < 0.5:
			warnings = append(warnings, "⚠ "+f.Explanation)
		}
	}

	parts := make([]string, 0, len(warnings)+2)
	if len(strengths) > 0 {
		parts = append(parts, strings.Join(strengths, "; "))
	}
	parts = append(parts, warnings...)
	parts = append(parts, confidenceSentences[confidence])
	return strings.Join(parts, ". ")
}

func baseMatch(factors []models.MatchFactor) float64 {
	var sum float64
	for _, f := range factors[:len(models.BaseFactorNames)] {
		sum += f.Score
	}
	return sum / float64(len(models.BaseFactorNames))
}

// combine applies the context-aware formula to a base match and the four
// context factors found by name in factors.
func combine(base float64, factors []models.MatchFactor, w models.ScoringWeights) (float64, models.ScoreBreakdown) {
	get := func(name string) float64 {
		for _, f := range factors {
			if f.Name == name {
				return f.Score
			}
		}
		return 0.5
	}
	pref := get(models.FactorPreferenceAlignment)
	rel := get(models.FactorReliability)
	urg := get(models.FactorUrgencyBonus)
	emo := get(models.FactorEmotionalComfort)

	total := w.Total()
	if total <= 0 {
		total = 1
	}
	weighted := base*w.BaseMatch + pref*w.PreferenceAlignment + rel*w.Reliability + urg*w.UrgencyBonus + emo*w.EmotionalComfort

	return clampScore(weighted / total * 100), models.ScoreBreakdown{
		BaseMatch:           round2(base * 100),
		PreferenceAlignment: round2(pref * 100),
		Reliability:         round2(rel * 100),
		UrgencyBonus:        round2(urg * 100),
		EmotionalComfort:    round2(emo * 100),
		Weights:             w,
	}
}

func proximity(distance *float64, maxKm float64) models.MatchFactor {
	if maxKm <= 0 {
		maxKm = models.DefaultMaxDistanceKm
	}
	if distance == nil {
		return models.MatchFactor{Name: models.FactorProximity, Score: 0.5, Explanation: "distance unknown"}
	}
	score := math.Max(0, 1-*distance/maxKm)
	explanation := fmt.Sprintf("%.1f km away", *distance)
	if *distance > maxKm {
		explanation = fmt.Sprintf("%.1f km away, outside the %.0f km radius", *distance, maxKm)
	}
	return models.MatchFactor{Name: models.FactorProximity, Score: score, Explanation: explanation}
}

func capabilityMatch(spec models.MatchSpec, have []string) (models.MatchFactor, []string, []string) {
	haveSet := toSet(have)
	required := make(map[string]struct{})
	matched := make(map[string]struct{})

	matchedCaps := []string{}
	for _, c := range spec.Requirements.RequiredCapabilities {
		required[c] = struct{}{}
		if _, ok := haveSet[c]; ok {
			matched[c] = struct{}{}
			matchedCaps = appendUnique(matchedCaps, c)
		}
	}
	matchedTypes := []string{}
	for _, st := range spec.ServiceTypes {
		required[st] = struct{}{}
		if _, ok := haveSet[st]; ok {
			matched[st] = struct{}{}
			matchedTypes = appendUnique(matchedTypes, st)
		}
	}

	if len(required) == 0 {
		return models.MatchFactor{
			Name:        models.FactorCapabilityMatch,
			Score:       1.0,
			Explanation: "no specific capabilities required",
		}, matchedCaps, matchedTypes
	}
	return models.MatchFactor{
		Name:        models.FactorCapabilityMatch,
		Score:       float64(len(matched)) / float64(len(required)),
		Explanation: fmt.Sprintf("meets %d of %d required capabilities", len(matched), len(required)),
	}, matchedCaps, matchedTypes
}

func availability(confirmed bool) models.MatchFactor {
	if confirmed {
		return models.MatchFactor{Name: models.FactorAvailability, Score: 1.0, Explanation: "availability confirmed for the requested window"}
	}
	return models.MatchFactor{Name: models.FactorAvailability, Score: 0.3, Explanation: "availability not confirmed"}
}

func verificationStatus(verified, poolAllowed bool) models.MatchFactor {
	switch {
	case verified && poolAllowed:
		return models.MatchFactor{Name: models.FactorVerificationStatus, Score: 1.0, Explanation: "verified organisation"}
	case verified:
		return models.MatchFactor{Name: models.FactorVerificationStatus, Score: 0.7, Explanation: "verified organisation outside the participant's provider pool"}
	default:
		return models.MatchFactor{Name: models.FactorVerificationStatus, Score: 0.4, Explanation: "organisation not yet verified"}
	}
}

func preferenceAlignment(sig models.CandidateSignals, organisationID string, rc *models.DynamicRiskContext) models.MatchFactor {
	have := toSet(sig.Capabilities)
	var met, total int
	for _, need := range rc.FunctionalNeeds {
		capability, ok := functionalNeedCapabilities[need]
		if !ok {
			capability = need
		}
		total++
		if _, ok := have[capability]; ok {
			met++
		}
	}
	if rc.EmotionalState.NeedsSensorySupport() {
		total++
		if _, ok := have[capabilitySensorySupport]; ok {
			met++
		}
	}
	if rc.WantsContinuityWorker {
		total++
		if _, familiar := rc.HistoryFor(organisationID); familiar {
			met++
		}
	}

	if total == 0 {
		return models.MatchFactor{Name: models.FactorPreferenceAlignment, Score: 0.7, Explanation: "no preferences expressed"}
	}
	return models.MatchFactor{
		Name:        models.FactorPreferenceAlignment,
		Score:       float64(met) / float64(total),
		Explanation: fmt.Sprintf("meets %d of %d participant preferences", met, total),
	}
}

func reliability(raw float64, organisationID string, rc *models.DynamicRiskContext) models.MatchFactor {
	score := math.Min(1, math.Max(0, raw/100))
	if h, ok := rc.HistoryFor(organisationID); ok {
		rate := math.Min(1, math.Max(0, h.PositiveRate))
		score = math.Min(1, score*0.7+rate*0.3+0.15)
		return models.MatchFactor{
			Name:        models.FactorReliability,
			Score:       score,
			Explanation: fmt.Sprintf("%d completed bookings with this participant", h.CompletedBookings),
		}
	}
	return models.MatchFactor{
		Name:        models.FactorReliability,
		Score:       score,
		Explanation: fmt.Sprintf("reliability score %.0f", raw),
	}
}

func urgencyBonus(u models.Urgency, available bool) models.MatchFactor {
	f := models.MatchFactor{Name: models.FactorUrgencyBonus}
	switch u {
	case models.UrgencyEmergency, models.UrgencyUrgent:
		if available {
			f.Score, f.Explanation = 1.0, fmt.Sprintf("available for %s request", u)
		} else {
			f.Score, f.Explanation = 0.3, fmt.Sprintf("not confirmed available for %s request", u)
		}
	case models.UrgencySoon, models.UrgencyStandard, models.UrgencyRoutine:
		if available {
			f.Score, f.Explanation = 0.8, "available within the requested timeframe"
		} else {
			f.Score, f.Explanation = 0.5, "timeframe availability not confirmed"
		}
	default:
		f.Score, f.Explanation = 0.6, "flexible timing"
	}
	return f
}

func emotionalComfort(sig models.CandidateSignals, organisationID string, rc *models.DynamicRiskContext) models.MatchFactor {
	_, familiar := rc.HistoryFor(organisationID)
	var score float64
	var notes []string

	if rc.EmotionalState.IsStressed() {
		score = 0.5
		if rc.PriorPositiveExperience {
			score += 0.3
			notes = append(notes, "prior positive experience")
		}
		if contains(sig.WorkerCapabilities, capabilityPositiveBehaviour) {
			score += 0.15
			notes = append(notes, "positive behaviour support trained")
		}
		if sig.WorkerCanDrive {
			score += 0.05
			notes = append(notes, "worker can drive")
		}
	} else {
		score = 0.7
		if familiar {
			score += 0.2
			notes = append(notes, "familiar provider")
		}
	}

	explanation := "comfort for a " + rc.EmotionalState.Label() + " participant"
	if len(notes) > 0 {
		explanation += " (" + strings.Join(notes, ", ") + ")"
	}
	return models.MatchFactor{
		Name:        models.FactorEmotionalComfort,
		Score:       math.Min(1, score),
		Explanation: explanation,
	}
}

func combinedCapabilities(org models.Candidate, worker *models.WorkerCandidate) []string {
	out := make([]string, 0, len(org.Capabilities)+len(org.ServiceTypes))
	for _, c := range org.Capabilities {
		out = appendUnique(out, c)
	}
	for _, st := range org.ServiceTypes {
		out = appendUnique(out, st)
	}
	if worker != nil {
		for _, c := range worker.Capabilities {
			out = appendUnique(out, c)
		}
		for _, st := range worker.ServiceTypes {
			out = appendUnique(out, st)
		}
	}
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, round2(v)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func appendUnique(values []string, v string) []string {
	if contains(values, v) {
		return values
	}
	return append(values, v)
}
