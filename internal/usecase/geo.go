package usecase

import (
	"math"

	"github.com/mercai/backend/internal/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometres, rounded to 2 decimals.
func HaversineKm(from, to domain.Location) float64 {
	lat1 := degreesToRadians(from.Latitude)
	lat2 := degreesToRadians(to.Latitude)
	dLat := lat2 - lat1
	dLon := degreesToRadians(to.Longitude - from.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return math.Round(earthRadiusKm*c*100) / 100
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
