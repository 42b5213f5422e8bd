// internal/models/verification.go
package models

import (
	"encoding/json"
	"fmt"
)

// Tristate is the answer to a hard-constraint check. Unknown is a first-class
// value and is never coerced to false. NotApplicable marks a check that was
// not evaluated for this request and serialises as null.
type Tristate int

const (
	NotApplicable Tristate = iota
	Unknown
	Yes
	No
)

// TristateFrom converts a nullable store answer.
func TristateFrom(v *bool) Tristate {
	if v == nil {
		return Unknown
	}
	if *v {
		return Yes
	}
	return No
}

func (t Tristate) String() string {
	switch t {
	case Yes:
		return "true"
	case No:
		return "false"
	case Unknown:
		return "unknown"
	default:
		return "null"
	}
}

func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case Yes:
		return []byte("true"), nil
	case No:
		return []byte("false"), nil
	case Unknown:
		return []byte(`"unknown"`), nil
	default:
		return []byte("null"), nil
	}
}

func (t *Tristate) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*t = Yes
	case "false":
		*t = No
	case "null":
		*t = NotApplicable
	case `"unknown"`:
		*t = Unknown
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid tristate %s", string(data))
		}
		return fmt.Errorf("invalid tristate %q", s)
	}
	return nil
}

// Unknown reasons attached to a VerificationResult.
const (
	UnknownUnspecifiedTimeWindow = "unspecified time window"
	UnknownNoWorkerAvailability  = "no worker availability confirmed"
	UnknownWorkerAvailability    = "worker availability could not be determined"
	UnknownVehicleAvailability   = "accessible vehicle availability could not be determined"
	UnknownWorkerClearance       = "worker clearance could not be determined"
	UnknownPoolMembership        = "pool membership could not be determined"
)

// VerificationResult holds the hard-constraint outcome for one organisation.
type VerificationResult struct {
	AvailabilityConfirmed bool     `json:"availabilityConfirmed"`
	VehicleAvailable      Tristate `json:"vehicleAvailable"`
	ClearanceCurrent      Tristate `json:"clearanceCurrent"`
	PoolAllowed           bool     `json:"poolAllowed"`
	Unknowns              []string `json:"unknowns"`
}

// WorkerVerification is the per-worker part of verification.
type WorkerVerification struct {
	WorkerID  string   `json:"workerId"`
	Available bool     `json:"available"`
	Clearance Tristate `json:"clearance"`
}

// VerifiedCandidate is an organisation candidate after verification, with the
// worker selected to represent it.
type VerifiedCandidate struct {
	Candidate      Candidate            `json:"candidate"`
	Verification   VerificationResult   `json:"verification"`
	Workers        []WorkerVerification `json:"workers,omitempty"`
	SelectedWorker *WorkerCandidate     `json:"selectedWorker,omitempty"`
}
