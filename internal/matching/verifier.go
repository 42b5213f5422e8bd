// internal/matching/verifier.go
package matching

import (
	"context"
	"sync"

	"care-match-workers/internal/common/errors"
	"care-match-workers/internal/common/logger"
	"care-match-workers/internal/models"
)

// Verifier checks hard constraints against the authoritative store. A fact the
// store cannot answer becomes an unknown reason on the candidate.
type Verifier struct {
	store  AuthoritativeStore
	logger logger.Logger
}

func NewVerifier(store AuthoritativeStore, log logger.Logger) *Verifier {
	return &Verifier{store: store, logger: log}
}

type workerCheck struct {
	available bool
	reason    string
	clearance models.Tristate
}

// VerifyAll verifies every candidate concurrently. It only fails when the
// context ends before the checks are joined.
func (v *Verifier) VerifyAll(ctx context.Context, spec models.MatchSpec, candidates []models.Candidate) ([]models.VerifiedCandidate, error) {
	out := make([]models.VerifiedCandidate, len(candidates))

	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = v.Verify(ctx, spec, candidates[i])
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewVerifyFailedError(err)
	}
	return out, nil
}

// Verify runs the checks for one organisation. Vehicle, pool and every
// worker's availability and clearance run concurrently.
func (v *Verifier) Verify(ctx context.Context, spec models.MatchSpec, c models.Candidate) models.VerifiedCandidate {
	var (
		wg      sync.WaitGroup
		vehicle = models.NotApplicable
		pool    *bool
		poolErr error
		checks  = make([]workerCheck, len(c.Workers))
	)

	if spec.Requirements.WheelchairAccessibleVehicle {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vehicle = v.vehicleAvailable(ctx, c.ID, spec.Window)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		pool, poolErr = v.store.OrganisationPoolAllowed(ctx, c.ID, spec.ParticipantID)
	}()

	for i := range c.Workers {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			checks[i].available, checks[i].reason = v.workerAvailable(ctx, c.Workers[i].ID, spec.Window)
		}(i)
		go func(i int) {
			defer wg.Done()
			checks[i].clearance = v.workerClearance(ctx, c.Workers[i].ID)
		}(i)
	}

	wg.Wait()

	result := models.VerificationResult{
		VehicleAvailable: vehicle,
		ClearanceCurrent: models.NotApplicable,
		PoolAllowed:      true,
		Unknowns:         []string{},
	}

	workers := make([]models.WorkerVerification, len(c.Workers))
	for i, w := range c.Workers {
		workers[i] = models.WorkerVerification{WorkerID: w.ID, Available: checks[i].available, Clearance: checks[i].clearance}
		if checks[i].available {
			result.AvailabilityConfirmed = true
		}
	}

	if len(c.Workers) > 0 && !result.AvailabilityConfirmed {
		for _, chk := range checks {
			if chk.reason != "" {
				result.Unknowns = appendUnique(result.Unknowns, chk.reason)
			}
		}
		result.Unknowns = append(result.Unknowns, models.UnknownNoWorkerAvailability)
	}

	if vehicle == models.Unknown {
		result.Unknowns = append(result.Unknowns, models.UnknownVehicleAvailability)
	}

	var selected *models.WorkerCandidate
	if idx := selectWorker(checks); idx >= 0 {
		w := c.Workers[idx]
		selected = &w
		result.ClearanceCurrent = checks[idx].clearance
		if result.ClearanceCurrent == models.Unknown {
			result.Unknowns = append(result.Unknowns, models.UnknownWorkerClearance)
		}
	}

	switch {
	case poolErr != nil:
		result.Unknowns = append(result.Unknowns, models.UnknownPoolMembership)
		v.logger.Debug("pool membership lookup failed", map[string]interface{}{
			"organisationId": c.ID,
			"error":          poolErr.Error(),
		})
	case pool != nil:
		result.PoolAllowed = *pool
	}

	if len(result.Unknowns) > 0 {
		v.logger.Debug("candidate has unknowns", map[string]interface{}{
			"organisationId": c.ID,
			"unknowns":       result.Unknowns,
		})
	}

	return models.VerifiedCandidate{
		Candidate:      c,
		Verification:   result,
		Workers:        workers,
		SelectedWorker: selected,
	}
}

func (v *Verifier) workerAvailable(ctx context.Context, workerID string, window models.TimeWindow) (bool, string) {
	if !window.Complete() {
		return false, models.UnknownUnspecifiedTimeWindow
	}
	ok, err := v.store.WorkerAvailableInWindow(ctx, workerID, window)
	if err != nil {
		v.logger.Debug("worker availability lookup failed", map[string]interface{}{
			"workerId": workerID,
			"error":    err.Error(),
		})
		return false, models.UnknownWorkerAvailability
	}
	if ok == nil {
		return false, models.UnknownWorkerAvailability
	}
	return *ok, ""
}

func (v *Verifier) workerClearance(ctx context.Context, workerID string) models.Tristate {
	ok, err := v.store.WorkerClearanceCurrent(ctx, workerID)
	if err != nil {
		v.logger.Debug("worker clearance lookup failed", map[string]interface{}{
			"workerId": workerID,
			"error":    err.Error(),
		})
		return models.Unknown
	}
	return models.TristateFrom(ok)
}

func (v *Verifier) vehicleAvailable(ctx context.Context, organisationID string, window models.TimeWindow) models.Tristate {
	ok, err := v.store.VehicleAvailableForWAV(ctx, organisationID, window)
	if err != nil {
		v.logger.Debug("vehicle availability lookup failed", map[string]interface{}{
			"organisationId": organisationID,
			"error":          err.Error(),
		})
		return models.Unknown
	}
	return models.TristateFrom(ok)
}

// selectWorker picks the worker that represents the organisation: available
// and cleared, else available, else the first. It returns -1 when there are none.
func selectWorker(checks []workerCheck) int {
	if len(checks) == 0 {
		return -1
	}
	firstAvailable := -1
	for i, chk := range checks {
		if !chk.available {
			continue
		}
		if chk.clearance == models.Yes {
			return i
		}
		if firstAvailable < 0 {
			firstAvailable = i
		}
	}
	if firstAvailable >= 0 {
		return firstAvailable
	}
	return 0
}
