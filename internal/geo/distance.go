// Package geo measures distances between coordinates on the WGS-84 ellipsoid.
package geo

import (
	"github.com/tidwall/geodesic"

	"github.com/rajasatyajit/ReliefHub/internal/models"
)

// Distance returns the geodesic distance between a and b in kilometers.
// It is symmetric and Distance(a, a) == 0. Range checking of the inputs
// happens at the boundary, see models.Coordinate.Validate.
func Distance(a, b models.Coordinate) float64 {
	var meters float64
	geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude, &meters, nil, nil)
	if meters < 0 {
		return 0
	}
	return meters / 1000
}
