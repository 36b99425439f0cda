package client

import (
	"fmt"
	"math"
	"time"

	"github.com/ntripcaster/caster/codec"
)

// GenerateGGA synthesizes a minimal $GPGGA sentence reporting pos and
// altitude (meters) as of now, with a valid trailing checksum. It exists
// purely for demo/test clients to exercise the caster's auto-selection
// and advisory position reporting; the caster itself never calls it.
func GenerateGGA(pos codec.Position, altitude float64, now time.Time) string {
	latDDMM := math.Abs(degreesToDDMM(pos.Latitude))
	lonDDMM := math.Abs(degreesToDDMM(pos.Longitude))

	latHemisphere := "N"
	if pos.Latitude < 0 {
		latHemisphere = "S"
	}
	lonHemisphere := "E"
	if pos.Longitude < 0 {
		lonHemisphere = "W"
	}

	body := fmt.Sprintf(
		"$GPGGA,%02d%02d%05.2f,%012.7f,%s,%013.7f,%s,1,30,1.2,%.4f,M,-2.860,M,,0000",
		now.Hour(), now.Minute(), float64(now.Second()),
		latDDMM, latHemisphere, lonDDMM, lonHemisphere, altitude,
	)

	var checksum byte
	for i := 1; i < len(body); i++ {
		checksum ^= body[i]
	}

	return fmt.Sprintf("%s*%02X\r\n", body, checksum)
}

// degreesToDDMM converts decimal degrees to the DDMM.mmmm form the GGA
// grammar expects: whole degrees times 100 plus the fractional remainder
// rescaled into minutes. Inverse of the DDMM.mmmm parsing in
// codec.ParseGGAPosition.
func degreesToDDMM(decimal float64) float64 {
	sign := 1.0
	if decimal < 0 {
		sign = -1.0
		decimal = -decimal
	}
	deg := math.Trunc(decimal)
	min := (decimal - deg) * 60.0
	return sign * (deg*100.0 + min)
}
