package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	p := Point{Lat: 10, Lng: 20}
	assert.InDelta(t, 0, HaversineKm(p, p), 1e-9)
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// London to Paris is roughly 344 km.
	london := Point{Lat: 51.5074, Lng: -0.1278}
	paris := Point{Lat: 48.8566, Lng: 2.3522}
	assert.InDelta(t, 344, HaversineKm(london, paris), 2)
	assert.InDelta(t, HaversineKm(london, paris), HaversineKm(paris, london), 1e-9)
}

func TestWithinKm(t *testing.T) {
	origin := Point{Lat: 40.0, Lng: -73.0}
	// one hundredth of a degree of latitude is about 1.1 km
	near := Point{Lat: 40.01, Lng: -73.0}
	far := Point{Lat: 40.1, Lng: -73.0}
	assert.True(t, WithinKm(origin, near, DefaultServiceRadiusKm))
	assert.False(t, WithinKm(origin, far, DefaultServiceRadiusKm))
}

func TestPoint_Valid(t *testing.T) {
	assert.False(t, Point{}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.True(t, Point{Lat: -33.86, Lng: 151.2}.Valid())
}
