// Package profile converts raw per-source extractions into the canonical
// profile schema and merges profiles for the same person across sources.
package profile

import (
	"strings"
	"time"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/parse"
)

// Normalize converts one source's raw extraction to the canonical schema:
// name split into parts, aliases unwrapped to strings, phones and list
// fields de-duplicated, provenance stamped.
func Normalize(p *model.PersonProfile, now time.Time) *model.QuickScanProfileData {
	if p == nil {
		return nil
	}

	first, middle, last := parse.SplitName(p.Name)
	out := &model.QuickScanProfileData{
		FirstName:         first,
		MiddleName:        middle,
		LastName:          last,
		FullName:          parse.CollapseSpaces(p.Name),
		Age:               p.Age,
		Phones:            parse.DedupePhones(p.Phones),
		Emails:            parse.DedupeStrings(p.Emails),
		Addresses:         dedupeAddresses(p.Addresses),
		Relatives:         dedupeRelatives(p.Relatives),
		Jobs:              p.Jobs,
		Education:         p.Education,
		LegalRecords:      parse.DedupeStrings(p.LegalRecords),
		BackgroundRecords: parse.DedupeStrings(p.BackgroundRecords),
		Assets:            parse.DedupeStrings(p.Assets),
		ScrapedAt:         now,
	}

	for _, a := range p.Aliases {
		out.Aliases = append(out.Aliases, a.Name)
	}
	out.Aliases = parse.DedupeStrings(out.Aliases)

	if p.Source != "" {
		out.Sources = []string{p.Source}
	}
	return out
}

// dedupeAddresses collapses repeats of the same place, keeping first-seen
// order. Exactly one address stays current: the first one flagged, or the
// first overall when none is.
func dedupeAddresses(addrs []model.Address) []model.Address {
	var out []model.Address
	seen := make(map[string]bool)
	sawCurrent := false
	for _, a := range addrs {
		key := parse.AddressKey(a)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if a.Current {
			a.Current = !sawCurrent
			sawCurrent = true
		}
		out = append(out, a)
	}
	if len(out) > 0 && !sawCurrent {
		out[0].Current = true
	}
	return out
}

// dedupeRelatives collapses name repeats case-insensitively, keeping the
// first entry that carries an age.
func dedupeRelatives(rels []model.Relative) []model.Relative {
	var out []model.Relative
	index := make(map[string]int)
	for _, r := range rels {
		name := parse.CollapseSpaces(r.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			if out[i].Age == 0 && r.Age != 0 {
				out[i].Age = r.Age
			}
			continue
		}
		index[key] = len(out)
		out = append(out, model.Relative{Name: name, Age: r.Age})
	}
	return out
}
