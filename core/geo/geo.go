// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"github.com/kilianp07/foodredist/core/model"
)

// EarthRadiusKM is the mean Earth radius used by the haversine formula.
const EarthRadiusKM = 6371.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b model.Coordinate) float64 {
	lat1, lon1 := radians(a.Lat), radians(a.Lon)
	return haversine(lat1, lon1, math.Cos(lat1), b)
}

// DistancesFrom evaluates origin against every destination. Results are
// index-aligned with dests and equal to pairwise Distance calls.
func DistancesFrom(origin model.Coordinate, dests []model.Coordinate) []float64 {
	lat1, lon1 := radians(origin.Lat), radians(origin.Lon)
	cosLat1 := math.Cos(lat1)
	out := make([]float64, len(dests))
	for i, d := range dests {
		out[i] = haversine(lat1, lon1, cosLat1, d)
	}
	return out
}

func haversine(lat1, lon1, cosLat1 float64, b model.Coordinate) float64 {
	lat2, lon2 := radians(b.Lat), radians(b.Lon)
	dlat := lat2 - lat1
	dlon := lon2 - lon1
	sinLat := math.Sin(dlat / 2)
	sinLon := math.Sin(dlon / 2)
	h := sinLat*sinLat + cosLat1*math.Cos(lat2)*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
