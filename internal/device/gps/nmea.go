package gps

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
)

// Fix is one position decoded from an NMEA sentence.
type Fix struct {
	// Coordinate is the decoded position.
	Coordinate marker.Coordinate
	// HDOP is the horizontal dilution of precision, 0 when the sentence has none.
	HDOP float64
	// Satellites is the number of satellites in use, 0 when unknown.
	Satellites int
}

var (
	// errNotNMEA is returned for lines that are not NMEA sentences.
	errNotNMEA = errors.New("not an NMEA sentence")
	// errChecksum is returned when the trailing checksum does not match.
	errChecksum = errors.New("NMEA checksum mismatch")
	// errUnsupported is returned for sentence types other than RMC and GGA.
	errUnsupported = errors.New("unsupported NMEA sentence")
	// errNoFix is returned when the receiver reports no valid position.
	errNoFix = errors.New("no position fix")
)

// ParseSentence decodes an RMC or GGA sentence from any talker (GP, GN, GL...).
func ParseSentence(line string) (Fix, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, errNotNMEA
	}

	body, checksum, hasChecksum := strings.Cut(line[1:], "*")
	if hasChecksum {
		want, err := strconv.ParseUint(checksum, 16, 8)
		if err != nil || byte(want) != xorChecksum(body) {
			return Fix{}, errChecksum
		}
	}

	fields := strings.Split(body, ",")
	if len(fields[0]) < 3 {
		return Fix{}, errNotNMEA
	}

	switch fields[0][len(fields[0])-3:] {
	case "RMC":
		return parseRMC(fields)
	case "GGA":
		return parseGGA(fields)
	default:
		return Fix{}, fmt.Errorf("%w: %s", errUnsupported, fields[0])
	}
}

// parseRMC decodes $xxRMC,time,status,lat,N/S,lon,E/W,...
func parseRMC(fields []string) (Fix, error) {
	if len(fields) < 7 {
		return Fix{}, fmt.Errorf("%w: short RMC", errNotNMEA)
	}

	if fields[2] != "A" {
		return Fix{}, errNoFix
	}

	coordinate, err := parseCoordinate(fields[3], fields[4], fields[5], fields[6])
	if err != nil {
		return Fix{}, err
	}

	return Fix{Coordinate: coordinate}, nil
}

// parseGGA decodes $xxGGA,time,lat,N/S,lon,E/W,quality,satellites,hdop,...
func parseGGA(fields []string) (Fix, error) {
	if len(fields) < 9 {
		return Fix{}, fmt.Errorf("%w: short GGA", errNotNMEA)
	}

	quality, err := strconv.Atoi(fields[6])
	if err != nil || quality == 0 {
		return Fix{}, errNoFix
	}

	coordinate, err := parseCoordinate(fields[2], fields[3], fields[4], fields[5])
	if err != nil {
		return Fix{}, err
	}

	fix := Fix{Coordinate: coordinate}

	if satellites, err := strconv.Atoi(fields[7]); err == nil {
		fix.Satellites = satellites
	}

	if hdop, err := strconv.ParseFloat(fields[8], 64); err == nil {
		fix.HDOP = hdop
	}

	return fix, nil
}

func parseCoordinate(lat, latHemisphere, lon, lonHemisphere string) (marker.Coordinate, error) {
	latitude, err := parseDegreesMinutes(lat)
	if err != nil {
		return marker.Coordinate{}, fmt.Errorf("parse latitude %q: %w", lat, err)
	}

	longitude, err := parseDegreesMinutes(lon)
	if err != nil {
		return marker.Coordinate{}, fmt.Errorf("parse longitude %q: %w", lon, err)
	}

	switch latHemisphere {
	case "N":
	case "S":
		latitude = -latitude
	default:
		return marker.Coordinate{}, fmt.Errorf("%w: latitude hemisphere %q", errNotNMEA, latHemisphere)
	}

	switch lonHemisphere {
	case "E":
	case "W":
		longitude = -longitude
	default:
		return marker.Coordinate{}, fmt.Errorf("%w: longitude hemisphere %q", errNotNMEA, lonHemisphere)
	}

	coordinate := marker.Coordinate{Latitude: latitude, Longitude: longitude}
	if !coordinate.Valid() {
		return marker.Coordinate{}, fmt.Errorf("%w: %s out of range", errNotNMEA, coordinate)
	}

	return coordinate, nil
}

// parseDegreesMinutes converts NMEA (d)ddmm.mmmm into decimal degrees.
func parseDegreesMinutes(s string) (float64, error) {
	if s == "" {
		return 0, errNoFix
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	degrees := math.Floor(v / 100)
	minutes := v - degrees*100

	return degrees + minutes/60, nil
}

// xorChecksum is the NMEA checksum of the text between '$' and '*'.
func xorChecksum(body string) byte {
	var sum byte
	for i := range len(body) {
		sum ^= body[i]
	}

	return sum
}
