package codec

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAdvertisementNameMatch(t *testing.T) {
	err := ValidateAdvertisementName("STR;mount1;mount1;RTCM 3;1005(1);2;GPS+GLO;SNIP;GBR;0.0;0.0;1;0;sNTRIP;none;B;N;9600;", "mount1")
	assert.NoError(t, err)
}

func TestValidateAdvertisementNameMismatch(t *testing.T) {
	err := ValidateAdvertisementName("STR;other;other;RTCM 3;1005(1);2;GPS+GLO;SNIP;GBR;0.0;0.0;1;0;sNTRIP;none;B;N;9600;", "mount1")
	assert.Error(t, err)
}

func TestValidateAdvertisementNameTooShortIsUnvalidated(t *testing.T) {
	err := ValidateAdvertisementName("STR;mount1", "mount1")
	assert.NoError(t, err)
}

func TestAdvertisementPositionFound(t *testing.T) {
	line := "STR;mount1;mount1;RTCM 3;1005(1);2;GPS+GLO;SNIP;GBR;37.78,-122.40;0.0;1;0;sNTRIP;none;B;N;9600;"
	pos, err := AdvertisementPosition(line)
	require.NoError(t, err)
	assert.InDelta(t, 37.78, pos.Latitude, 1e-9)
	assert.InDelta(t, -122.40, pos.Longitude, 1e-9)
}

func TestAdvertisementPositionMissing(t *testing.T) {
	line := "STR;mount1;mount1;RTCM 3;1005(1);2;GPS+GLO;SNIP;GBR;0.0;0.0;1;0;sNTRIP;none;B;N;9600;no-comma-here"
	_, err := AdvertisementPosition(line)
	assert.Error(t, err)
}

func TestAdvertisementPositionTooShort(t *testing.T) {
	_, err := AdvertisementPosition("STR;mount1;mount1")
	assert.Error(t, err)
}

func TestFormatSourceTable(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	line := "STR;mount1;mount1;RTCM 3;;;;;;;;;;;;;;;"
	table := FormatSourceTable("ntripcaster/1.0", []string{line}, now)

	assert.True(t, strings.HasPrefix(table, "SOURCETABLE 200 OK\r\n"))
	assert.Contains(t, table, "Server: ntripcaster/1.0\r\n")
	assert.Contains(t, table, "Date: 01/02/24 15:04:05 UTC\r\n")
	assert.True(t, strings.HasSuffix(table, "ENDSOURCETABLE\r\n"))

	// Content-Length counts the STR lines only, excluding the trailing
	// ENDSOURCETABLE terminator.
	require.True(t, strings.Contains(table, "Content-Length: "))
	lengthLine := strings.Split(strings.Split(table, "Content-Length: ")[1], "\r\n")[0]
	assert.Equal(t, strconv.Itoa(len(line+"\r\n")), lengthLine)
}

func TestFormatSourceTableEmpty(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	table := FormatSourceTable("ntripcaster/1.0", nil, now)
	assert.True(t, strings.HasSuffix(table, "\r\n\r\nENDSOURCETABLE\r\n"))
}
