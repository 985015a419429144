package verification

import (
	"math"
	"regexp"
	"strconv"
)

// EarthRadiusMeters is the mean Earth radius used by HaversineDistance.
const EarthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance between two decimal-degree
// coordinates, rounded to the nearest meter. Inputs are not range checked and a NaN
// input yields NaN.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(EarthRadiusMeters * c)
}

func toRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// numericPrefix matches the leading decimal number of a string, ignoring any trailing
// characters (EXIF tools often append units or direction letters).
var numericPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseGPSCoordinate parses a textual coordinate. It returns nil for an empty string or
// one that does not start with a finite number.
func ParseGPSCoordinate(value string) *float64 {
	m := numericPrefix.FindString(trimLeftSpace(value))
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseGPSCoordinatePtr is ParseGPSCoordinate for optional request fields.
func ParseGPSCoordinatePtr(value *string) *float64 {
	if value == nil {
		return nil
	}
	return ParseGPSCoordinate(*value)
}

func trimLeftSpace(s string) string {
	for len(s) > 0 {
		switch s[0] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			s = s[1:]
		default:
			return s
		}
	}
	return s
}
