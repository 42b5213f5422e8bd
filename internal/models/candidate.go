// internal/models/candidate.go
package models

type OrganisationType string

const (
	OrganisationTypeCare      OrganisationType = "care"
	OrganisationTypeTransport OrganisationType = "transport"
	OrganisationTypeBoth      OrganisationType = "both"
)

// WorkerCandidate is a staff member returned by the candidate search, either
// nested under an organisation or from the standalone worker search.
type WorkerCandidate struct {
	ID               string    `json:"id"`
	OrganisationID   string    `json:"organisationId"`
	Name             string    `json:"name"`
	Capabilities     []string  `json:"capabilities"`
	ServiceTypes     []string  `json:"serviceTypes"`
	Location         *GeoPoint `json:"location,omitempty"`
	ReliabilityScore float64   `json:"reliabilityScore"`
	Verified         bool      `json:"verified"`
	Active           bool      `json:"active"`
	CanDrive         bool      `json:"canDrive"`
	HasClearance     bool      `json:"hasClearance"`
	Gender           string    `json:"gender,omitempty"`
	Languages        []string  `json:"languages,omitempty"`
}

// Candidate is an organisation returned by the candidate search.
type Candidate struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Type             OrganisationType  `json:"type"`
	Capabilities     []string          `json:"capabilities"`
	ServiceTypes     []string          `json:"serviceTypes"`
	Location         *GeoPoint         `json:"location,omitempty"`
	ReliabilityScore float64           `json:"reliabilityScore"`
	Verified         bool              `json:"verified"`
	Active           bool              `json:"active"`
	Workers          []WorkerCandidate `json:"workers,omitempty"`
	VehicleIDs       []string          `json:"vehicleIds,omitempty"`
}

// AnyWorkerCanDrive reports whether at least one nested worker can drive.
func (c Candidate) AnyWorkerCanDrive() bool {
	for _, w := range c.Workers {
		if w.CanDrive {
			return true
		}
	}
	return false
}
