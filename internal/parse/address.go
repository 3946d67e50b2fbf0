// Package parse holds the per-field text extraction rules used by source
// extractors. Each rule is a pure function over a text fragment so broker
// HTML variations can be captured as growing fixture sets.
package parse

import (
	"regexp"
	"strings"

	"github.com/unlist-labs/brokerscan/internal/model"
)

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
}

// stateToAbbr maps lowercase full names to lowercase abbreviations.
var stateToAbbr = func() map[string]string {
	m := make(map[string]string, len(abbrToState))
	for abbr, full := range abbrToState {
		m[full] = abbr
	}
	return m
}()

// IsState reports whether s is a US state abbreviation or full name.
func IsState(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if _, ok := abbrToState[lower]; ok {
		return true
	}
	_, ok := stateToAbbr[lower]
	return ok
}

// StateAbbr returns the uppercase two-letter abbreviation for a state given
// either form, or "" if unrecognized.
func StateAbbr(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	if _, ok := abbrToState[lower]; ok {
		return strings.ToUpper(lower)
	}
	if abbr, ok := stateToAbbr[lower]; ok {
		return strings.ToUpper(abbr)
	}
	return ""
}

// Address patterns, tried in descending specificity. Broker listings render
// addresses in a handful of shapes; anything else falls back to Raw.
var (
	// "123 Main St, Springfield, IL 62704"
	addrStreetCityStateZip = regexp.MustCompile(`^(.+?),\s*([A-Za-z .'\-]+?),\s*([A-Za-z]{2})\.?\s+(\d{5}(?:-\d{4})?)$`)
	// "123 Main St, Springfield IL 62704"
	addrStreetCityStateZipNoComma = regexp.MustCompile(`^(.+?),\s*([A-Za-z .'\-]+?)\s+([A-Za-z]{2})\.?\s+(\d{5}(?:-\d{4})?)$`)
	// "Springfield, IL 62704"
	addrCityStateZip = regexp.MustCompile(`^([A-Za-z .'\-]+?),\s*([A-Za-z]{2})\.?\s+(\d{5}(?:-\d{4})?)$`)
	// "Springfield, IL"
	addrCityState = regexp.MustCompile(`^([A-Za-z .'\-]+?),\s*([A-Za-z]{2})$`)
)

// Address parses a single address string against the known patterns in
// descending order. Unmatched shapes produce an Address with only Raw set;
// this never fails.
func Address(s string) model.Address {
	s = CollapseSpaces(s)
	if s == "" {
		return model.Address{}
	}

	if m := addrStreetCityStateZip.FindStringSubmatch(s); m != nil && IsState(m[3]) {
		return model.Address{Street: m[1], City: m[2], State: strings.ToUpper(m[3]), Zip: m[4], Raw: s}
	}
	if m := addrStreetCityStateZipNoComma.FindStringSubmatch(s); m != nil && IsState(m[3]) {
		return model.Address{Street: m[1], City: m[2], State: strings.ToUpper(m[3]), Zip: m[4], Raw: s}
	}
	if m := addrCityStateZip.FindStringSubmatch(s); m != nil && IsState(m[2]) {
		return model.Address{City: m[1], State: strings.ToUpper(m[2]), Zip: m[3], Raw: s}
	}
	if m := addrCityState.FindStringSubmatch(s); m != nil && IsState(m[2]) {
		return model.Address{City: m[1], State: strings.ToUpper(m[2]), Raw: s}
	}

	return model.Address{Raw: s}
}

// Addresses parses a list of raw address strings and applies the positional
// residence convention: the first parseable entry is marked current, the
// rest are history. This is an inferred convention from observed broker
// markup, not a guarantee; sources with an explicit "current" label set the
// flag themselves.
func Addresses(raw []string) []model.Address {
	var out []model.Address
	seen := make(map[string]bool)
	for _, r := range raw {
		a := Address(r)
		if a.Raw == "" {
			continue
		}
		key := AddressKey(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		a.Current = len(out) == 0
		out = append(out, a)
	}
	return out
}

// AddressKey returns the dedupe key for an address: street+city+state when
// split, otherwise the lowercased raw string.
func AddressKey(a model.Address) string {
	if a.Street != "" || a.City != "" {
		return strings.ToLower(a.Street + "|" + a.City + "|" + a.State)
	}
	return strings.ToLower(a.Raw)
}

var spaceRe = regexp.MustCompile(`\s+`)

// CollapseSpaces trims and collapses all runs of whitespace to single spaces.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
