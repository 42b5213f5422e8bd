// internal/matching/pipeline.go
package matching

import (
	"context"
	"time"

	"care-match-workers/internal/common/errors"
	"care-match-workers/internal/common/logger"
	"care-match-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

const DefaultTopN = 20

type PipelineConfig struct {
	TopN int
	// DefaultMaxDistanceKm replaces the built-in radius for requests without one.
	DefaultMaxDistanceKm float64
}

// Recorder receives per-run counts. Implementations must be safe for concurrent use.
type Recorder interface {
	StageCandidates(stage string, n int)
	UnknownReason(reason string)
	ConfidenceTier(tier models.Confidence)
}

// Dependencies are the collaborators of a pipeline run. Events and Recorder are optional.
type Dependencies struct {
	Requests        RequestRepository
	Source          CandidateSource
	Store           AuthoritativeStore
	Contexts        ContextProvider
	Recommendations RecommendationStore
	Evidence        EvidenceCounter
	Events          EventPublisher
	Recorder        Recorder
	Logger          logger.Logger
}

type Pipeline struct {
	cfg      PipelineConfig
	deps     Dependencies
	verifier *Verifier
	scorer   *Scorer
	now      func() time.Time
}

func NewPipeline(cfg PipelineConfig, deps Dependencies) *Pipeline {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Pipeline{
		cfg:      cfg,
		deps:     deps,
		verifier: NewVerifier(deps.Store, deps.Logger),
		scorer:   NewScorer(),
		now:      time.Now,
	}
}

// Run matches a stored request and returns grouped, hydrated recommendations.
// Not found and terminal status are fatal; every other failure is returned
// for the caller to retry the whole run.
func (p *Pipeline) Run(ctx context.Context, requestID string) (*models.GroupedRecommendations, error) {
	log := p.deps.Logger.WithFields(map[string]interface{}{"requestId": requestID})

	req, err := p.deps.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, errors.NewRequestLoadFailedError(err)
	}
	if req == nil {
		return nil, errors.NewNotFoundError(requestID)
	}
	if req.Status.IsTerminal() {
		return nil, errors.NewInvalidStatusError(requestID, string(req.Status))
	}

	spec := models.SpecFromRequest(req)
	if req.MaxDistanceKm <= 0 && p.cfg.DefaultMaxDistanceKm > 0 {
		spec.MaxDistanceKm = p.cfg.DefaultMaxDistanceKm
	}

	var (
		orgs    []models.Candidate
		workers []models.WorkerCandidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orgs, err = p.deps.Source.SearchOrganisations(gctx, spec)
		return err
	})
	g.Go(func() error {
		var err error
		workers, err = p.deps.Source.SearchWorkers(gctx, spec)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewSearchFailedError(err)
	}
	p.deps.Recorder.StageCandidates("searched", len(orgs))

	candidates, orphans := MergeWorkers(orgs, workers)
	if orphans > 0 {
		log.Debug("dropped workers without a returned organisation", map[string]interface{}{"count": orphans})
	}
	if spec.Requirements.VerifiedOrganisationsOnly {
		candidates = verifiedOnly(candidates)
	}
	if len(candidates) > p.cfg.TopN {
		candidates = candidates[:p.cfg.TopN]
	}

	verified, err := p.verifier.VerifyAll(ctx, spec, candidates)
	if err != nil {
		return nil, err
	}
	p.deps.Recorder.StageCandidates("verified", len(verified))

	eligible := make([]models.VerifiedCandidate, 0, len(verified))
	byOrganisation := make(map[string]models.VerifiedCandidate, len(verified))
	for _, vc := range verified {
		if !vc.Verification.PoolAllowed {
			continue
		}
		eligible = append(eligible, vc)
		byOrganisation[vc.Candidate.ID] = vc
		for _, reason := range vc.Verification.Unknowns {
			p.deps.Recorder.UnknownReason(reason)
		}
	}
	p.deps.Recorder.StageCandidates("eligible", len(eligible))

	rc, err := p.deps.Contexts.GetContext(ctx, spec.ParticipantID)
	if err != nil {
		return nil, errors.NewContextFetchFailedError(err)
	}

	scored := p.scorer.ScoreAll(spec, eligible, rc)
	for _, rec := range scored {
		p.deps.Recorder.ConfidenceTier(rec.Confidence)
	}
	p.deps.Recorder.StageCandidates("scored", len(scored))

	groups := Group(spec.RequestType, Rank(scored))

	if err := p.deps.Recommendations.ReplaceForRequest(ctx, requestID, groups.Rows()); err != nil {
		return nil, errors.NewPersistFailedError(err)
	}

	generatedAt := p.now().UTC()
	p.publish(ctx, log, spec, groups, generatedAt)

	counts, err := p.deps.Evidence.CountEvidence(ctx, evidenceRefs(groups))
	if err != nil {
		return nil, errors.NewEvidenceFetchFailedError(err)
	}

	mode := models.ScoringModeBase
	if rc != nil {
		mode = models.ScoringModeContextAware
	}

	log.Info("match pipeline completed", map[string]interface{}{
		"organisations": len(orgs),
		"workers":       len(workers),
		"verified":      len(verified),
		"excluded":      len(verified) - len(eligible),
		"scored":        len(scored),
		"scoringMode":   mode,
	})

	return &models.GroupedRecommendations{
		RequestID:   requestID,
		RequestType: spec.RequestType,
		Combined:    HydrateAll(groups.Combined, byOrganisation, counts),
		Split: models.SplitRecommendations{
			Care:      HydrateAll(groups.Care, byOrganisation, counts),
			Transport: HydrateAll(groups.Transport, byOrganisation, counts),
		},
		Meta: models.GroupedMeta{
			OrganisationsFound: len(orgs),
			WorkersFound:       len(workers),
			CandidatesVerified: len(verified),
			CandidatesExcluded: len(verified) - len(eligible),
			CandidatesScored:   len(scored),
			ScoringMode:        mode,
			GeneratedAt:        generatedAt,
		},
	}, nil
}

func (p *Pipeline) publish(ctx context.Context, log logger.Logger, spec models.MatchSpec, groups Groups, at time.Time) {
	if p.deps.Events == nil {
		return
	}
	event := RecommendationsGeneratedEvent{
		RequestID:     spec.RequestID,
		ParticipantID: spec.ParticipantID,
		RequestType:   spec.RequestType,
		Combined:      len(groups.Combined),
		Care:          len(groups.Care),
		Transport:     len(groups.Transport),
		GeneratedAt:   at.Format(time.RFC3339),
	}
	if err := p.deps.Events.PublishRecommendationsGenerated(ctx, event); err != nil {
		log.Warn("failed to publish recommendations event", map[string]interface{}{"error": err.Error()})
	}
}

// MergeWorkers attaches standalone worker results to their organisation,
// skipping workers already nested. It returns the number of workers whose
// organisation was not in the result.
func MergeWorkers(orgs []models.Candidate, workers []models.WorkerCandidate) ([]models.Candidate, int) {
	out := make([]models.Candidate, len(orgs))
	index := make(map[string]int, len(orgs))
	for i, org := range orgs {
		org.Workers = append([]models.WorkerCandidate(nil), org.Workers...)
		out[i] = org
		index[org.ID] = i
	}

	orphans := 0
	for _, w := range workers {
		i, ok := index[w.OrganisationID]
		if !ok {
			orphans++
			continue
		}
		duplicate := false
		for _, existing := range out[i].Workers {
			if existing.ID == w.ID {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out[i].Workers = append(out[i].Workers, w)
		}
	}
	return out, orphans
}

func verifiedOnly(candidates []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Verified {
			out = append(out, c)
		}
	}
	return out
}

func evidenceRefs(groups Groups) []string {
	seen := make(map[string]struct{})
	refs := []string{}
	for _, row := range groups.Rows() {
		for _, ref := range row.Recommendation.EvidenceRefs {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

type nopRecorder struct{}

func (nopRecorder) StageCandidates(string, int)      {}
func (nopRecorder) UnknownReason(string)             {}
func (nopRecorder) ConfidenceTier(models.Confidence) {}
