package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantlab/topescape/internal/rolling"
)

// dateLayouts are the accepted date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"2006-01-02 15:04:05",
}

// ParseDate parses a date cell into the normalized date type. Values
// that match no known layout are a ParseError for the caller to coerce.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return Normalize(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// ParseNumber parses a numeric cell, tolerating thousands separators,
// explicit plus signs, percent suffixes and blank cells. Unparseable
// values coerce to missing, never to zero.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "nan") {
		return rolling.Missing()
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return rolling.Missing()
	}
	return v
}
