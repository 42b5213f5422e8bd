// internal/adapters/postgres/requests.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"care-match-workers/internal/models"

	"github.com/lib/pq"
)

const getRequestQuery = `
	SELECT id, participant_id, request_type, service_types, urgency,
	       origin_lat, origin_lng, destination_lat, destination_lng,
	       max_distance_km, preferred_start, preferred_end,
	       requirements, notes, status
	FROM service_requests
	WHERE id = $1`

// RequestRepository loads stored service requests.
type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// GetRequest returns nil, nil when no request has the id.
func (r *RequestRepository) GetRequest(ctx context.Context, requestID string) (*models.MatchRequest, error) {
	var (
		req                  models.MatchRequest
		requestType, urgency string
		status               string
		originLat, originLng sql.NullFloat64
		destLat, destLng     sql.NullFloat64
		maxDistance          sql.NullFloat64
		prefStart, prefEnd   sql.NullTime
		requirements         []byte
		notes                sql.NullString
	)

	err := r.db.QueryRowContext(ctx, getRequestQuery, requestID).Scan(
		&req.ID, &req.ParticipantID, &requestType, pq.Array(&req.ServiceTypes), &urgency,
		&originLat, &originLng, &destLat, &destLng,
		&maxDistance, &prefStart, &prefEnd,
		&requirements, &notes, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load service request %s: %w", requestID, err)
	}

	req.RequestType = models.RequestType(requestType)
	req.Urgency = models.Urgency(urgency)
	req.Status = models.RequestStatus(status)
	req.Origin = point(originLat, originLng)
	req.Destination = point(destLat, destLng)
	req.MaxDistanceKm = maxDistance.Float64
	req.Notes = notes.String
	if prefStart.Valid {
		t := prefStart.Time
		req.PreferredStart = &t
	}
	if prefEnd.Valid {
		t := prefEnd.Time
		req.PreferredEnd = &t
	}

	if len(requirements) > 0 && string(requirements) != "null" {
		var reqs models.Requirements
		if err := json.Unmarshal(requirements, &reqs); err != nil {
			return nil, fmt.Errorf("decode requirements of %s: %w", requestID, err)
		}
		req.Requirements = &reqs
	}

	return &req, nil
}

func point(lat, lng sql.NullFloat64) *models.GeoPoint {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &models.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
}
