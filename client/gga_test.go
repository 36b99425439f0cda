package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntripcaster/caster/codec"
)

func TestGenerateGGAChecksumValid(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sentence := GenerateGGA(codec.Position{Latitude: 37.785, Longitude: -122.406}, 12.3, now)

	assert.True(t, codec.GGAChecksumValid(sentence))
}

func TestGenerateGGARoundTripsPosition(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pos := codec.Position{Latitude: 37.785, Longitude: -122.406}
	sentence := GenerateGGA(pos, 12.3, now)

	parsed, err := codec.ParseGGAPosition(sentence)
	require.NoError(t, err)
	assert.InDelta(t, pos.Latitude, parsed.Latitude, 1e-3)
	assert.InDelta(t, pos.Longitude, parsed.Longitude, 1e-3)
}

func TestGenerateGGASouthernEasternHemisphere(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pos := codec.Position{Latitude: -33.87, Longitude: 151.21}
	sentence := GenerateGGA(pos, 0, now)

	require.True(t, codec.GGAChecksumValid(sentence))
	parsed, err := codec.ParseGGAPosition(sentence)
	require.NoError(t, err)
	assert.InDelta(t, pos.Latitude, parsed.Latitude, 1e-3)
	assert.InDelta(t, pos.Longitude, parsed.Longitude, 1e-3)
}
