package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePositionHeaderKeyed(t *testing.T) {
	pos, err := ParsePositionHeader("lat=37.78,lon=-122.40")
	require.NoError(t, err)
	assert.InDelta(t, 37.78, pos.Latitude, 1e-9)
	assert.InDelta(t, -122.40, pos.Longitude, 1e-9)
}

func TestParsePositionHeaderBare(t *testing.T) {
	pos, err := ParsePositionHeader("37.78,-122.40")
	require.NoError(t, err)
	assert.InDelta(t, 37.78, pos.Latitude, 1e-9)
	assert.InDelta(t, -122.40, pos.Longitude, 1e-9)
}

func TestParsePositionHeaderInvalid(t *testing.T) {
	for _, s := range []string{"", "lat=abc,lon=1.0", "just-one-value", "lat=1.0"} {
		_, err := ParsePositionHeader(s)
		assert.Errorf(t, err, "expected error for %q", s)
	}
}

func TestHaversineSymmetryAndIdentity(t *testing.T) {
	a := Position{Latitude: 37.80, Longitude: -122.40}
	b := Position{Latitude: 37.60, Longitude: -122.40}

	assert.Equal(t, Haversine(a, b), Haversine(b, a))
	assert.Equal(t, 0.0, Haversine(a, a))
}

func TestHaversineKnownDistance(t *testing.T) {
	a := Position{Latitude: 37.80, Longitude: -122.40}
	b := Position{Latitude: 37.60, Longitude: -122.40}

	d := Haversine(a, b)
	// ~0.2 degrees of latitude is roughly 22km.
	assert.InDelta(t, 22200, d, 1000)
}
