// Package matching ranks relief hubs against a location and a request.
//
// Every function here is pure: hubs are read, never written, and the results
// carry copies of the hubs they describe.
package matching

import (
	"sort"

	"github.com/rajasatyajit/ReliefHub/internal/geo"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

// DefaultNearbyRadiusKm is the radius used when a caller asks for nearby hubs
// without naming one.
const DefaultNearbyRadiusKm = 50.0

// FindNearby returns the hubs within maxDistanceKm of point (inclusive),
// closest first. Hubs at the same rounded distance keep their input order.
// The result is never nil.
func FindNearby(point models.Coordinate, hubs []models.Hub, maxDistanceKm float64) []models.NearbyHub {
	out := make([]models.NearbyHub, 0)
	for _, h := range hubs {
		d := geo.Distance(point, h.Location())
		if d > maxDistanceKm {
			continue
		}
		out = append(out, models.NearbyHub{
			Hub:        h.Snapshot(),
			DistanceKm: round(d, 2),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}
