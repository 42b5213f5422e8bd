// internal/matching/pipeline_test.go
package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "care-match-workers/internal/common/errors"
	"care-match-workers/internal/common/logger"
	"care-match-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	requests  *fakeRequests
	source    *fakeSource
	store     *fakeStore
	contexts  *fakeContexts
	recs      *mockRecommendationStore
	evidence  *fakeEvidence
	publisher *mockPublisher
}

func newPipelineFixture() *pipelineFixture {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	return &pipelineFixture{
		requests: &fakeRequests{requests: map[string]*models.MatchRequest{
			"req-1": {
				ID:             "req-1",
				ParticipantID:  "participant-1",
				RequestType:    models.RequestTypeBoth,
				ServiceTypes:   []string{"personal_care"},
				Urgency:        models.UrgencySoon,
				Origin:         &models.GeoPoint{Lat: -37.8136, Lng: 144.9631},
				PreferredStart: &start,
				PreferredEnd:   &end,
				Status:         models.RequestStatusPending,
			},
			"req-done": {ID: "req-done", Status: models.RequestStatusCompleted},
		}},
		source: &fakeSource{
			orgs: []models.Candidate{
				{ID: "org-both", Name: "Both Ways", Type: models.OrganisationTypeBoth, ServiceTypes: []string{"personal_care", "transport"}, Verified: true, ReliabilityScore: 90},
				{ID: "org-care", Name: "Care Co", Type: models.OrganisationTypeCare, ServiceTypes: []string{"personal_care"}, Verified: true, ReliabilityScore: 70},
				{ID: "org-ride", Name: "Ride Co", Type: models.OrganisationTypeTransport, ServiceTypes: []string{"transport"}, ReliabilityScore: 60},
				{ID: "org-closed", Name: "Closed Pool", Type: models.OrganisationTypeCare, ServiceTypes: []string{"personal_care"}, Verified: true},
			},
			workers: []models.WorkerCandidate{
				{ID: "w-1", OrganisationID: "org-both", Name: "Alex", CanDrive: true},
				{ID: "w-2", OrganisationID: "org-care", Name: "Sam"},
				{ID: "w-x", OrganisationID: "org-missing", Name: "Orphan"},
			},
		},
		store: &fakeStore{
			availability: map[string]*bool{"w-1": boolPtr(true), "w-2": boolPtr(true)},
			clearance:    map[string]*bool{"w-1": boolPtr(true), "w-2": boolPtr(true)},
			pool:         map[string]*bool{"org-closed": boolPtr(false)},
		},
		contexts:  &fakeContexts{},
		recs:      &mockRecommendationStore{},
		evidence:  &fakeEvidence{counts: map[string]int{"organisation:org-both": 3, "worker:w-1": 1}},
		publisher: &mockPublisher{},
	}
}

func (f *pipelineFixture) pipeline(t *testing.T) *Pipeline {
	p := NewPipeline(PipelineConfig{TopN: 10}, Dependencies{
		Requests:        f.requests,
		Source:          f.source,
		Store:           f.store,
		Contexts:        f.contexts,
		Recommendations: f.recs,
		Evidence:        f.evidence,
		Events:          f.publisher,
		Logger:          logger.NewTestLogger(t),
	})
	p.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	return p
}

func TestPipeline_Run(t *testing.T) {
	f := newPipelineFixture()
	f.recs.On("ReplaceForRequest", mock.Anything, "req-1", mock.MatchedBy(func(rows []models.StoredRecommendation) bool {
		return len(rows) == 3
	})).Return(nil).Once()
	f.publisher.On("PublishRecommendationsGenerated", mock.Anything, mock.MatchedBy(func(e RecommendationsGeneratedEvent) bool {
		return e.RequestID == "req-1" && e.Combined == 1 && e.Care == 1 && e.Transport == 1
	})).Return(nil).Once()

	out, err := f.pipeline(t).Run(context.Background(), "req-1")

	require.NoError(t, err)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, models.RequestTypeBoth, out.RequestType)

	require.Len(t, out.Combined, 1)
	assert.Equal(t, "org-both", out.Combined[0].OrganisationID)
	assert.Equal(t, "Both Ways – Alex", out.Combined[0].Label)
	assert.Equal(t, 3, out.Combined[0].Organisation.EvidenceCount)
	require.NotNil(t, out.Combined[0].Worker)
	assert.Equal(t, 1, out.Combined[0].Worker.EvidenceCount)

	require.Len(t, out.Split.Care, 1)
	assert.Equal(t, "org-care", out.Split.Care[0].OrganisationID)
	assert.Equal(t, 1, out.Split.Care[0].Rank)
	require.Len(t, out.Split.Transport, 1)
	assert.Equal(t, "org-ride", out.Split.Transport[0].OrganisationID)
	assert.Equal(t, models.ConfidenceNeedsVerification, out.Split.Transport[0].Confidence)

	assert.Equal(t, 4, out.Meta.OrganisationsFound)
	assert.Equal(t, 3, out.Meta.WorkersFound)
	assert.Equal(t, 4, out.Meta.CandidatesVerified)
	assert.Equal(t, 1, out.Meta.CandidatesExcluded)
	assert.Equal(t, 3, out.Meta.CandidatesScored)
	assert.Equal(t, models.ScoringModeBase, out.Meta.ScoringMode)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), out.Meta.GeneratedAt)

	assert.ElementsMatch(t, []string{
		"organisation:org-both", "worker:w-1",
		"organisation:org-care", "worker:w-2",
		"organisation:org-ride",
	}, f.evidence.refs)

	f.recs.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestPipeline_ContextAwareWhenContextPresent(t *testing.T) {
	f := newPipelineFixture()
	f.contexts.rc = &models.DynamicRiskContext{EmotionalState: models.EmotionalStateCalm}
	f.recs.On("ReplaceForRequest", mock.Anything, "req-1", mock.Anything).Return(nil)
	f.publisher.On("PublishRecommendationsGenerated", mock.Anything, mock.Anything).Return(nil)

	out, err := f.pipeline(t).Run(context.Background(), "req-1")

	require.NoError(t, err)
	assert.Equal(t, models.ScoringModeContextAware, out.Meta.ScoringMode)
	for _, card := range out.Combined {
		assert.Len(t, card.Factors, 8)
	}
}

func TestPipeline_PublishFailureDoesNotFailRun(t *testing.T) {
	f := newPipelineFixture()
	f.recs.On("ReplaceForRequest", mock.Anything, "req-1", mock.Anything).Return(nil)
	f.publisher.On("PublishRecommendationsGenerated", mock.Anything, mock.Anything).Return(errors.New("sns unavailable"))

	_, err := f.pipeline(t).Run(context.Background(), "req-1")
	assert.NoError(t, err)
}

func TestPipeline_VerifiedOnlyAndTopN(t *testing.T) {
	f := newPipelineFixture()
	f.requests.requests["req-1"].Requirements = &models.Requirements{VerifiedOrganisationsOnly: true}
	f.recs.On("ReplaceForRequest", mock.Anything, "req-1", mock.Anything).Return(nil)
	f.publisher.On("PublishRecommendationsGenerated", mock.Anything, mock.Anything).Return(nil)

	p := f.pipeline(t)
	p.cfg.TopN = 2

	out, err := p.Run(context.Background(), "req-1")

	require.NoError(t, err)
	assert.Equal(t, 2, out.Meta.CandidatesVerified)
	assert.Empty(t, out.Split.Transport)
}

func TestPipeline_DefaultRadius(t *testing.T) {
	f := newPipelineFixture()
	f.recs.On("ReplaceForRequest", mock.Anything, "req-1", mock.Anything).Return(nil)
	f.publisher.On("PublishRecommendationsGenerated", mock.Anything, mock.Anything).Return(nil)

	p := f.pipeline(t)
	p.cfg.DefaultMaxDistanceKm = 40

	_, err := p.Run(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 40.0, f.source.spec.MaxDistanceKm)

	f.requests.requests["req-1"].MaxDistanceKm = 10
	_, err = p.Run(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, f.source.spec.MaxDistanceKm, "request radius wins")
}

func TestPipeline_Errors(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		setup     func(f *pipelineFixture)
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"unknown request", "req-missing", func(*pipelineFixture) {}, apperrors.ErrCodeNotFound, false},
		{"terminal status", "req-done", func(*pipelineFixture) {}, apperrors.ErrCodeInvalidStatus, false},
		{"request lookup", "req-1", func(f *pipelineFixture) { f.requests.err = errors.New("db down") }, apperrors.ErrCodeRequestLoadFailed, true},
		{"worker search", "req-1", func(f *pipelineFixture) { f.source.workersErr = errors.New("es down") }, apperrors.ErrCodeSearchFailed, true},
		{"context", "req-1", func(f *pipelineFixture) { f.contexts.err = errors.New("redis down") }, apperrors.ErrCodeContextFetchFailed, true},
		{"persist", "req-1", func(f *pipelineFixture) {
			f.recs.On("ReplaceForRequest", mock.Anything, "req-1", mock.Anything).Return(errors.New("tx aborted"))
		}, apperrors.ErrCodePersistFailed, true},
		{"evidence", "req-1", func(f *pipelineFixture) {
			f.recs.On("ReplaceForRequest", mock.Anything, "req-1", mock.Anything).Return(nil)
			f.publisher.On("PublishRecommendationsGenerated", mock.Anything, mock.Anything).Return(nil)
			f.evidence.err = errors.New("timeout")
		}, apperrors.ErrCodeEvidenceFetchFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			tt.setup(f)

			out, err := f.pipeline(t).Run(context.Background(), tt.requestID)

			require.Error(t, err)
			assert.Nil(t, out)
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestMergeWorkers(t *testing.T) {
	orgs := []models.Candidate{
		{ID: "a", Workers: []models.WorkerCandidate{{ID: "w-1", OrganisationID: "a"}}},
		{ID: "b"},
	}
	workers := []models.WorkerCandidate{
		{ID: "w-1", OrganisationID: "a"},
		{ID: "w-2", OrganisationID: "a"},
		{ID: "w-3", OrganisationID: "b"},
		{ID: "w-4", OrganisationID: "zzz"},
	}

	merged, orphans := MergeWorkers(orgs, workers)

	assert.Equal(t, 1, orphans)
	require.Len(t, merged, 2)
	assert.Len(t, merged[0].Workers, 2)
	assert.Len(t, merged[1].Workers, 1)
	assert.Len(t, orgs[0].Workers, 1, "input is not modified")
}
