// internal/matching/grouper.go
package matching

import "care-match-workers/internal/models"

// Groups holds ranked recommendations by fulfilment strategy. Ranks are local to each bucket.
type Groups struct {
	Combined  []models.ScoredRecommendation
	Care      []models.ScoredRecommendation
	Transport []models.ScoredRecommendation
}

// Group partitions ranked recommendations. Only a "both" request has a
// combined bucket: an organisation of type both, or a care organisation with
// any driving-capable worker, can fulfil the whole request on its own.
func Group(requestType models.RequestType, ranked []models.ScoredRecommendation) Groups {
	g := Groups{
		Combined:  []models.ScoredRecommendation{},
		Care:      []models.ScoredRecommendation{},
		Transport: []models.ScoredRecommendation{},
	}

	switch requestType {
	case models.RequestTypeCare:
		g.Care = append(g.Care, ranked...)
	case models.RequestTypeTransport:
		g.Transport = append(g.Transport, ranked...)
	case models.RequestTypeBoth:
		for _, rec := range ranked {
			switch {
			case rec.OrganisationType == models.OrganisationTypeBoth,
				rec.OrganisationType == models.OrganisationTypeCare && rec.Signals.AnyWorkerCanDrive:
				g.Combined = append(g.Combined, rec)
			case rec.OrganisationType == models.OrganisationTypeTransport:
				g.Transport = append(g.Transport, rec)
			default:
				g.Care = append(g.Care, rec)
			}
		}
	default:
		// Unrecognised request types are treated as care only.
		g.Care = append(g.Care, ranked...)
	}

	g.Combined = Rank(g.Combined)
	g.Care = Rank(g.Care)
	g.Transport = Rank(g.Transport)
	return g
}

// Rows flattens the groups into persisted rows, combined first.
func (g Groups) Rows() []models.StoredRecommendation {
	out := make([]models.StoredRecommendation, 0, g.Len())
	for _, b := range []struct {
		bucket models.Bucket
		recs   []models.ScoredRecommendation
	}{
		{models.BucketCombined, g.Combined},
		{models.BucketCare, g.Care},
		{models.BucketTransport, g.Transport},
	} {
		for _, rec := range b.recs {
			out = append(out, models.StoredRecommendation{Bucket: b.bucket, Recommendation: rec})
		}
	}
	return out
}

func (g Groups) Len() int {
	return len(g.Combined) + len(g.Care) + len(g.Transport)
}
