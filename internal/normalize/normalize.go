package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyMarkers = strings.NewReplacer(
		"MXN", " ",
		"USD", " ",
		"$", " ",
		"€", " ",
		":", " ",
	)
	priceWord   = regexp.MustCompile(`(?i)precio|price`)
	nonNumeric  = regexp.MustCompile(`[^\d,.\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
	numberToken = regexp.MustCompile(`((?:\d{1,3}(?:[ ,.]\d{3})+)|\d+)(?:([.,])(\d{1,2}))?`)
)

// Whitespace collapses runs of whitespace to one space and trims the ends.
func Whitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Price parses a human price string such as "$1,234.56 MXN" or "1 234,56".
// Thousands may be grouped with spaces, commas or dots; the fractional part
// has one or two digits after the last "." or ",", so "1.234,56" and
// "1,234.56" agree. ok is false when no number is found.
func Price(s string) (value float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	s = currencyMarkers.Replace(s)
	s = priceWord.ReplaceAllString(s, " ")
	s = nonNumeric.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))

	m := numberToken.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	intPart := strings.NewReplacer(" ", "", ",", "", ".", "").Replace(m[1])
	num := intPart
	if m[3] != "" {
		num += "." + m[3]
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// PricePtr is Price returning nil on failure.
func PricePtr(s string) *float64 {
	if f, ok := Price(s); ok {
		return &f
	}
	return nil
}

// TextPtr normalises whitespace and returns nil for empty results.
func TextPtr(s string) *string {
	s = Whitespace(s)
	if s == "" {
		return nil
	}
	return &s
}
