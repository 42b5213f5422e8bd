// internal/adapters/postgres/store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"care-match-workers/internal/models"
)

const (
	// NULL when the worker has no availability slot covering the window.
	workerAvailabilityQuery = `
		SELECT bool_or(available)
		FROM worker_availability
		WHERE worker_id = $1 AND starts_at <= $2 AND ends_at >= $3`

	vehicleFleetQuery = `
		SELECT COUNT(*)
		FROM vehicles
		WHERE organisation_id = $1 AND wheelchair_accessible AND active`

	vehicleFreeQuery = `
		SELECT COUNT(*) AS fleet,
		       COUNT(*) FILTER (WHERE NOT EXISTS (
		           SELECT 1 FROM vehicle_bookings b
		           WHERE b.vehicle_id = v.id AND b.starts_at < $3 AND b.ends_at > $2
		       )) AS free
		FROM vehicles v
		WHERE v.organisation_id = $1 AND v.wheelchair_accessible AND v.active`

	workerClearanceQuery = `
		SELECT expires_at > now()
		FROM worker_clearances
		WHERE worker_id = $1
		ORDER BY expires_at DESC
		LIMIT 1`

	// NULL when the participant has no provider pool, which means unrestricted.
	poolMembershipQuery = `
		SELECT bool_or(organisation_id = $1)
		FROM participant_provider_pools
		WHERE participant_id = $2`
)

// Store answers the hard-constraint checks from the operational database.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WorkerAvailableInWindow(ctx context.Context, workerID string, window models.TimeWindow) (*bool, error) {
	if !window.Complete() {
		return nil, nil
	}

	var available sql.NullBool
	err := s.db.QueryRowContext(ctx, workerAvailabilityQuery, workerID, *window.Start, *window.End).Scan(&available)
	if err != nil {
		return nil, fmt.Errorf("worker availability %s: %w", workerID, err)
	}
	return nullBool(available), nil
}

// VehicleAvailableForWAV reports whether the organisation has an accessible vehicle
// free for the window. Without a complete window any accessible vehicle counts.
// An organisation with no accessible vehicles answers false, not unknown.
func (s *Store) VehicleAvailableForWAV(ctx context.Context, organisationID string, window models.TimeWindow) (*bool, error) {
	var fleet, free int

	if window.Complete() {
		err := s.db.QueryRowContext(ctx, vehicleFreeQuery, organisationID, *window.Start, *window.End).Scan(&fleet, &free)
		if err != nil {
			return nil, fmt.Errorf("vehicle availability %s: %w", organisationID, err)
		}
	} else {
		if err := s.db.QueryRowContext(ctx, vehicleFleetQuery, organisationID).Scan(&fleet); err != nil {
			return nil, fmt.Errorf("vehicle fleet %s: %w", organisationID, err)
		}
		free = fleet
	}

	ok := fleet > 0 && free > 0
	return &ok, nil
}

// WorkerClearanceCurrent checks the most recent clearance. No record yields nil.
func (s *Store) WorkerClearanceCurrent(ctx context.Context, workerID string) (*bool, error) {
	var current bool
	err := s.db.QueryRowContext(ctx, workerClearanceQuery, workerID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("worker clearance %s: %w", workerID, err)
	}
	return &current, nil
}

func (s *Store) OrganisationPoolAllowed(ctx context.Context, organisationID, participantID string) (*bool, error) {
	var allowed sql.NullBool
	err := s.db.QueryRowContext(ctx, poolMembershipQuery, organisationID, participantID).Scan(&allowed)
	if err != nil {
		return nil, fmt.Errorf("pool membership %s/%s: %w", participantID, organisationID, err)
	}
	return nullBool(allowed), nil
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}
