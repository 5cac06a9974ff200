package scraper

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	yearRe  = regexp.MustCompile(`\b(1[7-9]\d{2}|20\d{2})\b`)
	digitRe = regexp.MustCompile(`\d`)

	// Placeholder tokens sites use for missing values
	placeholders = map[string]struct{}{
		"":     {},
		"-":    {},
		"n/c":  {},
		"n/a":  {},
		"k.a.": {},
	}
)

// IsNumeric reports whether s parses as a plain float
func IsNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// ContainsNumber reports whether s contains at least one digit
func ContainsNumber(s string) bool {
	return digitRe.MatchString(s)
}

// IsPlaceholder reports whether s is a token sites use instead of a value
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseLocalizedFloat parses a numeric string that may use either "." or ","
// as the decimal separator and the other as a thousands separator, e.g.
// "1.000,50", "1,000.50", "71,30" or "548.000". A lone separator followed by
// exactly three digits is treated as a thousands separator. Non-numeric
// input yields ok=false, never an error value of 0 masquerading as data.
func ParseLocalizedFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	if IsPlaceholder(s) {
		return 0, false
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the later one is the decimal separator
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func normalizeSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.LastIndex(s, sep)
	if len(s)-idx-1 == 3 && idx > 0 {
		// "548.000" / "7,754" style grouping
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}

// ExtractYear returns the first 4-digit year between 1700 and 2099 found in
// s. It fails when s contains no digits at all, or no year in range.
func ExtractYear(s string) (int, error) {
	if !ContainsNumber(s) {
		return 0, errors.New("no digits in: " + s)
	}
	match := yearRe.FindString(s)
	if match == "" {
		return 0, errors.New("no year between 1700 and 2099 in: " + s)
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, err
	}
	return year, nil
}

// SplitPart returns the index-th part of target split by sep
func SplitPart(target, sep string, index int) (string, error) {
	parts := strings.Split(target, sep)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// CleanText collapses whitespace runs and trims the result
func CleanText(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}
