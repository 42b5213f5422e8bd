// internal/models/context.go
package models

type EmotionalState string

const (
	EmotionalStateCalm        EmotionalState = "calm"
	EmotionalStateSettled     EmotionalState = "settled"
	EmotionalStateStressed    EmotionalState = "stressed"
	EmotionalStateAnxious     EmotionalState = "anxious"
	EmotionalStateOverwhelmed EmotionalState = "overwhelmed"
	EmotionalStateDistressed  EmotionalState = "distressed"
)

// IsStressed groups the states that get the stressed comfort baseline.
func (e EmotionalState) IsStressed() bool {
	switch e {
	case EmotionalStateStressed, EmotionalStateAnxious, EmotionalStateOverwhelmed, EmotionalStateDistressed:
		return true
	}
	return false
}

// NeedsSensorySupport is true when the state calls for a low-stimulus worker.
func (e EmotionalState) NeedsSensorySupport() bool {
	return e == EmotionalStateOverwhelmed
}

func (e EmotionalState) Label() string {
	if e == "" {
		return string(EmotionalStateCalm)
	}
	return string(e)
}

type NeedsUrgency string

const (
	NeedsUrgencyLow      NeedsUrgency = "low"
	NeedsUrgencyMedium   NeedsUrgency = "medium"
	NeedsUrgencyHigh     NeedsUrgency = "high"
	NeedsUrgencyCritical NeedsUrgency = "critical"
)

// AsUrgency maps the participant's needs urgency onto the request urgency scale.
func (n NeedsUrgency) AsUrgency() Urgency {
	switch n {
	case NeedsUrgencyCritical:
		return UrgencyEmergency
	case NeedsUrgencyHigh:
		return UrgencyUrgent
	case NeedsUrgencyMedium:
		return UrgencySoon
	case NeedsUrgencyLow:
		return UrgencyFlexible
	default:
		return ""
	}
}

// OutcomeHistory is the participant's booking history with one provider.
type OutcomeHistory struct {
	CompletedBookings int     `json:"completedBookings"`
	PositiveRate      float64 `json:"positiveRate"`
}

// PreferenceWeights overrides individual context weights. Nil fields keep the default.
type PreferenceWeights struct {
	PreferenceAlignment *float64 `json:"preferenceAlignment,omitempty"`
	Reliability         *float64 `json:"reliability,omitempty"`
	UrgencyBonus        *float64 `json:"urgencyBonus,omitempty"`
	EmotionalComfort    *float64 `json:"emotionalComfort,omitempty"`
}

// DynamicRiskContext holds volatile per-turn signals supplied by the caller.
type DynamicRiskContext struct {
	EmotionalState          EmotionalState            `json:"emotionalState"`
	NeedsUrgency            NeedsUrgency              `json:"needsUrgency"`
	FunctionalNeeds         []string                  `json:"functionalNeeds"`
	WantsContinuityWorker   bool                      `json:"wantsContinuityWorker"`
	PriorPositiveExperience bool                      `json:"priorPositiveExperience"`
	OutcomeHistory          map[string]OutcomeHistory `json:"outcomeHistory,omitempty"`
	PreferenceWeights       *PreferenceWeights        `json:"preferenceWeights,omitempty"`
}

// HistoryFor returns the outcome history with an organisation, if any bookings were completed.
func (c *DynamicRiskContext) HistoryFor(organisationID string) (OutcomeHistory, bool) {
	if c == nil || c.OutcomeHistory == nil {
		return OutcomeHistory{}, false
	}
	h, ok := c.OutcomeHistory[organisationID]
	if !ok || h.CompletedBookings <= 0 {
		return OutcomeHistory{}, false
	}
	return h, true
}
