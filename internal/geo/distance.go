package geo

import "math"

const (
	// EarthRadiusKm is Earth's mean radius for Haversine calculation.
	EarthRadiusKm = 6371.0088
	// DefaultServiceRadiusKm is how far a rider may be from a restaurant and still
	// see its ready orders.
	DefaultServiceRadiusKm = 5.0
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p is a real coordinate. The zero point is treated as
// "location unknown".
func (p Point) Valid() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineKm calculates the great-circle distance between two points in kilometres.
func HaversineKm(a, b Point) float64 {
	const degToRad = math.Pi / 180
	dLat := (b.Lat - a.Lat) * degToRad
	dLng := (b.Lng - a.Lng) * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*degToRad)*math.Cos(b.Lat*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// WithinKm checks if two points are at most radiusKm apart.
func WithinKm(a, b Point, radiusKm float64) bool {
	return HaversineKm(a, b) <= radiusKm
}
