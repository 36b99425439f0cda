package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidAdvertisement is returned when a publisher's Ntrip-STR header
// doesn't match the mount it's registering under.
var ErrInvalidAdvertisement = errors.New("invalid Ntrip-STR advertisement")

// ValidateAdvertisementName checks that a publisher's verbatim Ntrip-STR
// line names the mount point it arrived with. Per the source-table entry
// grammar, field 2 (mountpoint) and field 3 (identifier) of a "STR;..."
// line are expected to equal the mount name the publisher is registering.
// A line with 4 or fewer fields is too short to carry those fields at all
// and is left unvalidated, matching the original caster's threshold - a
// short or malformed Ntrip-STR is never by itself a registration failure.
func ValidateAdvertisementName(advertisement, name string) error {
	parts := strings.Split(advertisement, ";")
	if len(parts) <= 4 {
		return nil
	}

	mount, identifier := parts[1], parts[2]
	if mount != name || identifier != name {
		return errors.Wrapf(ErrInvalidAdvertisement, "fields 2/3 (%q, %q) do not match mount %q", mount, identifier, name)
	}
	return nil
}

// AdvertisementPosition recovers a position from a Ntrip-STR line's misc
// field (field 10, the 9th semicolon-delimited index) when the publisher's
// handshake carried no explicit Position header.
func AdvertisementPosition(advertisement string) (Position, error) {
	parts := strings.Split(advertisement, ";")
	if len(parts) <= 9 {
		return Position{}, errors.Wrap(ErrInvalidAdvertisement, "no misc field")
	}
	misc := parts[9]
	if !strings.Contains(misc, ",") {
		return Position{}, errors.Wrap(ErrInvalidAdvertisement, "misc field carries no position")
	}
	return ParsePositionHeader(misc)
}

// FormatSourceTable renders the source-table response body described for
// GET / and miss-without-Authorization requests: a SOURCETABLE preamble
// followed by every mount's verbatim advertisement line, in registration
// order, terminated by ENDSOURCETABLE.
func FormatSourceTable(agent string, advertisements []string, now time.Time) string {
	var body strings.Builder
	for _, line := range advertisements {
		body.WriteString(line)
		if !strings.HasSuffix(line, "\r\n") {
			body.WriteString("\r\n")
		}
	}
	// Content-Length covers the STR lines only, not the trailing
	// ENDSOURCETABLE terminator.
	contentLength := body.Len()
	body.WriteString("ENDSOURCETABLE\r\n")

	return fmt.Sprintf(
		"SOURCETABLE 200 OK\r\nServer: %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\nDate: %s\r\n\r\n%s",
		agent, contentLength, now.Format("01/02/06 15:04:05 MST"), body.String(),
	)
}
