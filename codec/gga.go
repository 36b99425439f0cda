package codec

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedGGA is returned when a $GPGGA/$GNGGA sentence cannot be
// parsed or checksummed.
var ErrMalformedGGA = errors.New("malformed GGA sentence")

// GGAChecksumValid reports whether sentence (a full "$...*HH" line, with or
// without a trailing CRLF) carries a correct XOR checksum over every byte
// between '$' and '*'.
func GGAChecksumValid(sentence string) bool {
	dollar := strings.IndexByte(sentence, '$')
	star := strings.IndexByte(sentence, '*')
	if dollar < 0 || star < 0 || star <= dollar || star+2 >= len(sentence) {
		return false
	}

	want, err := strconv.ParseUint(sentence[star+1:star+3], 16, 8)
	if err != nil {
		return false
	}

	var sum byte
	for i := dollar + 1; i < star; i++ {
		sum ^= sentence[i]
	}
	return sum == byte(want)
}

// ParseGGAPosition extracts latitude/longitude from a GGA sentence's
// comma-separated fields. Fields are indexed from 0 starting at the talker
// ID; at least 15 fields are required. Field 2 is latitude (DDMM.mmmm),
// field 3 its hemisphere, field 4 longitude (DDDMM.mmmm), field 5 its
// hemisphere.
func ParseGGAPosition(sentence string) (Position, error) {
	// Strip framing so field 0 is the talker/sentence id.
	body := sentence
	if i := strings.IndexByte(body, '$'); i >= 0 {
		body = body[i+1:]
	}
	if i := strings.IndexByte(body, '*'); i >= 0 {
		body = body[:i]
	}

	fields := strings.Split(body, ",")
	if len(fields) < 15 {
		return Position{}, errors.Wrapf(ErrMalformedGGA, "expected at least 15 fields, got %d", len(fields))
	}

	lat, err := parseDDMM(fields[2], fields[3], "N", "S")
	if err != nil {
		return Position{}, err
	}
	lon, err := parseDDMM(fields[4], fields[5], "E", "W")
	if err != nil {
		return Position{}, err
	}

	return Position{Latitude: lat, Longitude: lon}, nil
}

func parseDDMM(value, hemisphere, positive, negative string) (float64, error) {
	if value == "" || hemisphere == "" {
		return 0, errors.Wrap(ErrMalformedGGA, "empty latitude/longitude field")
	}

	raw, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedGGA, "parsing %q as DDMM.mmmm", value)
	}

	deg := float64(int(raw / 100))
	min := raw - deg*100
	dec := deg + min/60

	switch hemisphere {
	case negative:
		dec = -dec
	case positive:
		// no-op
	default:
		return 0, errors.Wrapf(ErrMalformedGGA, "unexpected hemisphere %q", hemisphere)
	}
	return dec, nil
}
