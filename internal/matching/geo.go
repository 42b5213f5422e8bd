// internal/matching/geo.go
package matching

import (
	"care-match-workers/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DistanceKm returns the great-circle distance between two points, or nil
// when either point is missing.
func DistanceKm(from, to *models.GeoPoint) *float64 {
	if from == nil || to == nil {
		return nil
	}
	d := geo.DistanceHaversine(orb.Point{from.Lng, from.Lat}, orb.Point{to.Lng, to.Lat}) / 1000
	return &d
}
