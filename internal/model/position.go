package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPosition renders a coordinate pair as an ad-hoc location string.
// The shortest exact float representation is used so ParsePosition returns
// the original values.
func FormatPosition(latitude, longitude float64) string {
	return strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)
}

// ParsePosition parses a string produced by FormatPosition.
func ParsePosition(s string) (latitude, longitude float64, err error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q: missing separator", s)
	}
	latitude, err = strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	longitude, err = strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	return latitude, longitude, nil
}
