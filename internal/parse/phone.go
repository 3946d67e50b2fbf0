package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/unlist-labs/brokerscan/internal/model"
)

// phoneRe matches US phone numbers in the forms brokers render:
// (312) 555-0141, 312-555-0141, 312.555.0141, +1 312 555 0141.
var phoneRe = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)

// NormalizePhone reduces a phone string to ten digits, stripping a leading
// country code. Returns "" when the result is not a ten-digit number.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return digits
}

// FormatPhone renders ten digits as "(312) 555-0141". Inputs that fail to
// normalize are returned unchanged.
func FormatPhone(s string) string {
	d := NormalizePhone(s)
	if d == "" {
		return s
	}
	return fmt.Sprintf("(%s) %s-%s", d[0:3], d[3:6], d[6:10])
}

// Phones extracts every phone number from a text fragment, de-duplicated by
// normalized digits. Exactly one phone is marked primary: the first
// encountered.
func Phones(text string) []model.Phone {
	var out []model.Phone
	seen := make(map[string]bool)
	for _, m := range phoneRe.FindAllString(text, -1) {
		d := NormalizePhone(m)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, model.Phone{
			Number:  FormatPhone(d),
			Primary: len(out) == 0,
		})
	}
	return out
}

// DedupePhones merges phone lists by normalized digits, keeping the first
// occurrence of each number. The first survivor is the sole primary.
func DedupePhones(phones []model.Phone) []model.Phone {
	var out []model.Phone
	seen := make(map[string]bool)
	for _, p := range phones {
		d := NormalizePhone(p.Number)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		p.Number = FormatPhone(d)
		p.Primary = len(out) == 0
		out = append(out, p)
	}
	return out
}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Emails extracts email addresses from a text fragment, lowercased and
// de-duplicated.
func Emails(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range emailRe.FindAllString(text, -1) {
		e := strings.ToLower(m)
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// DedupeStrings lowercase-dedupes a string list, preserving first-seen
// original casing and order.
func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range in {
		s = CollapseSpaces(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
