package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// nameBlocklist marks rows that look like section headings rather than
// people. A listing whose name contains one of these is discarded.
var nameBlocklist = []string{
	"summary", "overview", "sponsored", "advertisement", "view details",
	"background check", "see results",
}

// ValidName reports whether a candidate name looks like an actual person:
// long enough, at least two words, and free of blocklisted heading words.
func ValidName(s string) bool {
	s = CollapseSpaces(s)
	if len(s) < 4 || !strings.Contains(s, " ") {
		return false
	}
	lower := strings.ToLower(s)
	for _, w := range nameBlocklist {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

// SplitName splits a full name into first, middle, and last parts. Two-word
// names have no middle; everything between the first and last word becomes
// the middle.
func SplitName(full string) (first, middle, last string) {
	parts := strings.Fields(CollapseSpaces(full))
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], " "), parts[len(parts)-1]
	}
}

var akaPrefixRe = regexp.MustCompile(`(?i)^\s*(?:also known as|a\.?k\.?a\.?|goes by)[:\s]*`)

// Aliases splits an "also known as" fragment into individual alias names.
// Handles the common delimiters brokers use: commas, semicolons, bullets,
// and the word "and".
func Aliases(text string) []string {
	text = akaPrefixRe.ReplaceAllString(text, "")
	text = strings.NewReplacer("•", ",", "·", ",", ";", ",", " and ", ",").Replace(text)
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(text, ",") {
		p := CollapseSpaces(part)
		if p == "" || !ValidName(p) {
			continue
		}
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

var ageRe = regexp.MustCompile(`(?i)(?:age[:\s]+(\d{1,3}))|(?:\b(\d{1,3})\s+years?\s+old\b)`)

// Age extracts a person's age from a fragment like "Age 47" or
// "47 years old". Returns 0 when absent or implausible.
func Age(text string) int {
	m := ageRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 120 {
		return 0
	}
	return n
}
