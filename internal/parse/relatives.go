package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/unlist-labs/brokerscan/internal/model"
)

// relativeAgeRe matches a trailing age in either "Jane Doe, 45" or
// "Jane Doe (45)" form.
var relativeAgeRe = regexp.MustCompile(`^(.*?)(?:,\s*(\d{1,3})|\s*\((\d{1,3})\))\s*$`)

// Relative parses a single relative entry with an optional trailing age.
func Relative(s string) model.Relative {
	s = CollapseSpaces(s)
	if m := relativeAgeRe.FindStringSubmatch(s); m != nil {
		raw := m[2]
		if raw == "" {
			raw = m[3]
		}
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 120 {
			return model.Relative{Name: CollapseSpaces(m[1]), Age: n}
		}
	}
	return model.Relative{Name: s}
}

// Relatives parses a delimited relative list, dropping entries that do not
// look like names and de-duplicating by lowercased name.
func Relatives(entries []string) []model.Relative {
	var out []model.Relative
	seen := make(map[string]bool)
	for _, e := range entries {
		r := Relative(e)
		if !ValidName(r.Name) {
			continue
		}
		key := strings.ToLower(r.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
