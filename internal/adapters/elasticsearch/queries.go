// internal/adapters/elasticsearch/queries.go
package elasticsearch

import (
	"fmt"

	"care-match-workers/internal/models"
)

// buildOrganisationQuery filters active organisations that offer any requested
// service within range of the origin. Capabilities stay soft; the scorer weighs them.
func buildOrganisationQuery(spec models.MatchSpec, size int) map[string]interface{} {
	filterClauses := commonFilters(spec)

	switch spec.RequestType {
	case models.RequestTypeCare:
		filterClauses = append(filterClauses, terms("type", string(models.OrganisationTypeCare), string(models.OrganisationTypeBoth)))
	case models.RequestTypeTransport:
		filterClauses = append(filterClauses, terms("type", string(models.OrganisationTypeTransport), string(models.OrganisationTypeBoth)))
	}

	if spec.Requirements.VerifiedOrganisationsOnly {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"verified": true},
		})
	}

	return withSort(map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
	}, spec)
}

// buildWorkerQuery boosts workers that meet the gender and language preferences
// without excluding the rest.
func buildWorkerQuery(spec models.MatchSpec, size int) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"filter": commonFilters(spec),
	}

	shouldClauses := []interface{}{}
	if g := spec.Requirements.GenderPreference; g != "" && g != "any" {
		shouldClauses = append(shouldClauses, map[string]interface{}{
			"term": map[string]interface{}{"gender": map[string]interface{}{"value": g, "boost": 2}},
		})
	}
	if l := spec.Requirements.LanguagePreference; l != "" {
		shouldClauses = append(shouldClauses, map[string]interface{}{
			"term": map[string]interface{}{"languages": map[string]interface{}{"value": l, "boost": 2}},
		})
	}
	if len(shouldClauses) > 0 {
		boolQuery["should"] = shouldClauses
		boolQuery["minimum_should_match"] = 0
	}

	return withSort(map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}, spec)
}

func commonFilters(spec models.MatchSpec) []interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"active": true}},
	}

	if len(spec.ServiceTypes) > 0 {
		filterClauses = append(filterClauses, terms("service_types", spec.ServiceTypes...))
	}

	if spec.Origin != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%gkm", spec.MaxDistanceKm),
				"location": geoPoint(spec.Origin),
			},
		})
	}

	return filterClauses
}

// withSort orders by distance when an origin is known, then by relevance.
func withSort(body map[string]interface{}, spec models.MatchSpec) map[string]interface{} {
	if spec.Origin == nil {
		return body
	}
	body["sort"] = []interface{}{
		map[string]interface{}{
			"_geo_distance": map[string]interface{}{
				"location": geoPoint(spec.Origin),
				"order":    "asc",
				"unit":     "km",
			},
		},
		"_score",
	}
	return body
}

func terms(field string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"terms": map[string]interface{}{field: values},
	}
}

func geoPoint(p *models.GeoPoint) map[string]interface{} {
	return map[string]interface{}{"lat": p.Lat, "lon": p.Lng}
}
