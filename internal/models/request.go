// internal/models/request.go
package models

import "time"

type RequestType string

const (
	RequestTypeCare      RequestType = "care"
	RequestTypeTransport RequestType = "transport"
	RequestTypeBoth      RequestType = "both"
)

// Urgency is the timing tier of a service request.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencySoon      Urgency = "soon"
	UrgencyStandard  Urgency = "standard"
	UrgencyRoutine   Urgency = "routine"
	UrgencyFlexible  Urgency = "flexible"
)

// Rank orders urgencies from most (0) to least pressing. Unknown values sort last.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyEmergency:
		return 0
	case UrgencyUrgent:
		return 1
	case UrgencySoon:
		return 2
	case UrgencyStandard:
		return 3
	case UrgencyRoutine:
		return 4
	case UrgencyFlexible:
		return 5
	default:
		return 6
	}
}

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusMatching  RequestStatus = "matching"
	RequestStatusMatched   RequestStatus = "matched"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusCompleted RequestStatus = "completed"
)

// IsTerminal reports whether no further matching may run for the request.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCancelled || s == RequestStatusCompleted
}

const DefaultMaxDistanceKm = 25.0

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Requirements struct {
	WheelchairAccessibleVehicle bool     `json:"wheelchairAccessibleVehicle"`
	RequiredCapabilities        []string `json:"requiredCapabilities,omitempty"`
	GenderPreference            string   `json:"genderPreference,omitempty"`
	LanguagePreference          string   `json:"languagePreference,omitempty"`
	VerifiedOrganisationsOnly   bool     `json:"verifiedOrganisationsOnly"`
}

// MatchRequest is the stored service request a pipeline run is started for.
type MatchRequest struct {
	ID             string        `json:"id"`
	ParticipantID  string        `json:"participantId"`
	RequestType    RequestType   `json:"requestType"`
	ServiceTypes   []string      `json:"serviceTypes"`
	Urgency        Urgency       `json:"urgency"`
	Origin         *GeoPoint     `json:"origin,omitempty"`
	Destination    *GeoPoint     `json:"destination,omitempty"`
	MaxDistanceKm  float64       `json:"maxDistanceKm,omitempty"`
	PreferredStart *time.Time    `json:"preferredStart,omitempty"`
	PreferredEnd   *time.Time    `json:"preferredEnd,omitempty"`
	Requirements   *Requirements `json:"requirements,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	Status         RequestStatus `json:"status"`
}

// TimeWindow is a preferred service window. Either bound may be absent.
type TimeWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Complete reports whether both bounds are present.
func (w TimeWindow) Complete() bool {
	return w.Start != nil && w.End != nil
}

// MatchSpec is the immutable input to one matching run.
type MatchSpec struct {
	RequestID     string       `json:"requestId"`
	ParticipantID string       `json:"participantId"`
	RequestType   RequestType  `json:"requestType"`
	ServiceTypes  []string     `json:"serviceTypes"`
	Urgency       Urgency      `json:"urgency"`
	Origin        *GeoPoint    `json:"origin,omitempty"`
	Destination   *GeoPoint    `json:"destination,omitempty"`
	MaxDistanceKm float64      `json:"maxDistanceKm"`
	Window        TimeWindow   `json:"window"`
	Requirements  Requirements `json:"requirements"`
}

// SpecFromRequest reconstructs the MatchSpec for a stored request, applying defaults.
func SpecFromRequest(req *MatchRequest) MatchSpec {
	spec := MatchSpec{
		RequestID:     req.ID,
		ParticipantID: req.ParticipantID,
		RequestType:   req.RequestType,
		ServiceTypes:  append([]string(nil), req.ServiceTypes...),
		Urgency:       req.Urgency,
		Origin:        req.Origin,
		Destination:   req.Destination,
		MaxDistanceKm: req.MaxDistanceKm,
		Window: TimeWindow{
			Start: req.PreferredStart,
			End:   req.PreferredEnd,
		},
	}
	if spec.MaxDistanceKm <= 0 {
		spec.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if spec.Urgency == "" {
		spec.Urgency = UrgencyStandard
	}
	if req.Requirements != nil {
		spec.Requirements = *req.Requirements
		spec.Requirements.RequiredCapabilities = append([]string(nil), req.Requirements.RequiredCapabilities...)
	}
	return spec
}
