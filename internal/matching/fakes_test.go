// internal/matching/fakes_test.go
package matching

import (
	"context"
	"sync/atomic"
	"time"

	"care-match-workers/internal/models"

	"github.com/stretchr/testify/mock"
)

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func testWindow() models.TimeWindow {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	return models.TimeWindow{Start: &start, End: &end}
}

// fakeStore answers from fixed maps. Missing keys return nil.
type fakeStore struct {
	availability    map[string]*bool
	availabilityErr map[string]error
	clearance       map[string]*bool
	clearanceErr    map[string]error
	vehicle         map[string]*bool
	vehicleErr      error
	pool            map[string]*bool
	poolErr         error

	availabilityCalls atomic.Int64
	vehicleCalls      atomic.Int64
}

func (f *fakeStore) WorkerAvailableInWindow(_ context.Context, workerID string, _ models.TimeWindow) (*bool, error) {
	f.availabilityCalls.Add(1)
	if err := f.availabilityErr[workerID]; err != nil {
		return nil, err
	}
	return f.availability[workerID], nil
}

func (f *fakeStore) VehicleAvailableForWAV(_ context.Context, organisationID string, _ models.TimeWindow) (*bool, error) {
	f.vehicleCalls.Add(1)
	if f.vehicleErr != nil {
		return nil, f.vehicleErr
	}
	return f.vehicle[organisationID], nil
}

func (f *fakeStore) WorkerClearanceCurrent(_ context.Context, workerID string) (*bool, error) {
	if err := f.clearanceErr[workerID]; err != nil {
		return nil, err
	}
	return f.clearance[workerID], nil
}

func (f *fakeStore) OrganisationPoolAllowed(_ context.Context, organisationID, _ string) (*bool, error) {
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	return f.pool[organisationID], nil
}

type fakeSource struct {
	orgs       []models.Candidate
	workers    []models.WorkerCandidate
	orgsErr    error
	workersErr error
	spec       models.MatchSpec
}

func (f *fakeSource) SearchOrganisations(_ context.Context, spec models.MatchSpec) ([]models.Candidate, error) {
	f.spec = spec
	return f.orgs, f.orgsErr
}

func (f *fakeSource) SearchWorkers(context.Context, models.MatchSpec) ([]models.WorkerCandidate, error) {
	return f.workers, f.workersErr
}

type fakeRequests struct {
	requests map[string]*models.MatchRequest
	err      error
}

func (f *fakeRequests) GetRequest(_ context.Context, id string) (*models.MatchRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.requests[id], nil
}

type fakeContexts struct {
	rc  *models.DynamicRiskContext
	err error
}

func (f *fakeContexts) GetContext(context.Context, string) (*models.DynamicRiskContext, error) {
	return f.rc, f.err
}

type fakeEvidence struct {
	counts map[string]int
	err    error
	refs   []string
}

func (f *fakeEvidence) CountEvidence(_ context.Context, refs []string) (map[string]int, error) {
	f.refs = refs
	return f.counts, f.err
}

type mockRecommendationStore struct {
	mock.Mock
}

func (m *mockRecommendationStore) ReplaceForRequest(ctx context.Context, requestID string, rows []models.StoredRecommendation) error {
	args := m.Called(ctx, requestID, rows)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRecommendationsGenerated(ctx context.Context, event RecommendationsGeneratedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
