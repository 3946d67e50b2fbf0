package profile

import (
	"strings"
	"time"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/parse"
)

// Merge folds normalized profiles for the same person into one canonical
// record. List fields are unioned with per-field dedupe, so a phone number
// three sources report appears once. Scalar fields keep the first non-empty
// value in input order; input order is source priority order.
func Merge(profiles []*model.QuickScanProfileData, now time.Time) *model.QuickScanProfileData {
	var live []*model.QuickScanProfileData
	for _, p := range profiles {
		if p != nil {
			live = append(live, p)
		}
	}
	if len(live) == 0 {
		return nil
	}
	if len(live) == 1 {
		return live[0]
	}

	out := &model.QuickScanProfileData{ScrapedAt: now}
	m := newMerger(out)
	for _, p := range live {
		m.fold(p)
	}

	// Name parts re-derive from the winning full name so they never mix
	// sources.
	out.FirstName, out.MiddleName, out.LastName = parse.SplitName(out.FullName)
	out.Phones = parse.DedupePhones(out.Phones)
	return out
}

// merger carries the per-field seen sets across folds.
type merger struct {
	out       *model.QuickScanProfileData
	phones    map[string]bool
	emails    map[string]bool
	addrs     map[string]bool
	relatives map[string]int
	aliases   map[string]bool
	jobs      map[string]bool
	education map[string]bool
	records   map[string]bool
	sources   map[string]bool
}

func newMerger(out *model.QuickScanProfileData) *merger {
	return &merger{
		out:       out,
		phones:    make(map[string]bool),
		emails:    make(map[string]bool),
		addrs:     make(map[string]bool),
		relatives: make(map[string]int),
		aliases:   make(map[string]bool),
		jobs:      make(map[string]bool),
		education: make(map[string]bool),
		records:   make(map[string]bool),
		sources:   make(map[string]bool),
	}
}

func (m *merger) fold(p *model.QuickScanProfileData) {
	out := m.out
	if out.FullName == "" {
		out.FullName = p.FullName
	}
	if out.Age == 0 {
		out.Age = p.Age
	}
	if out.ScrapedAt.IsZero() || p.ScrapedAt.After(out.ScrapedAt) {
		out.ScrapedAt = p.ScrapedAt
	}

	for _, ph := range p.Phones {
		d := parse.NormalizePhone(ph.Number)
		if d == "" || m.phones[d] {
			continue
		}
		m.phones[d] = true
		out.Phones = append(out.Phones, ph)
	}
	for _, e := range p.Emails {
		key := strings.ToLower(e)
		if m.emails[key] {
			continue
		}
		m.emails[key] = true
		out.Emails = append(out.Emails, e)
	}
	for _, a := range p.Addresses {
		key := parse.AddressKey(a)
		if key == "" || m.addrs[key] {
			continue
		}
		m.addrs[key] = true
		if len(out.Addresses) > 0 {
			// Only the highest-priority source's first address stays
			// current.
			a.Current = false
		}
		out.Addresses = append(out.Addresses, a)
	}
	for _, r := range p.Relatives {
		key := strings.ToLower(r.Name)
		if i, ok := m.relatives[key]; ok {
			if out.Relatives[i].Age == 0 && r.Age != 0 {
				out.Relatives[i].Age = r.Age
			}
			continue
		}
		m.relatives[key] = len(out.Relatives)
		out.Relatives = append(out.Relatives, r)
	}
	for _, al := range p.Aliases {
		key := strings.ToLower(al)
		if key == "" || key == strings.ToLower(out.FullName) || m.aliases[key] {
			continue
		}
		m.aliases[key] = true
		out.Aliases = append(out.Aliases, al)
	}
	for _, j := range p.Jobs {
		key := strings.ToLower(j.Title + "|" + j.Company)
		if m.jobs[key] {
			continue
		}
		m.jobs[key] = true
		out.Jobs = append(out.Jobs, j)
	}
	for _, ed := range p.Education {
		key := strings.ToLower(ed.School + "|" + ed.Degree + "|" + ed.Field)
		if m.education[key] {
			continue
		}
		m.education[key] = true
		out.Education = append(out.Education, ed)
	}
	out.LegalRecords = m.foldStrings(out.LegalRecords, p.LegalRecords)
	out.BackgroundRecords = m.foldStrings(out.BackgroundRecords, p.BackgroundRecords)
	out.Assets = m.foldStrings(out.Assets, p.Assets)

	for _, s := range p.Sources {
		if m.sources[s] {
			continue
		}
		m.sources[s] = true
		out.Sources = append(out.Sources, s)
	}
}

// foldStrings appends unseen entries. The record lists share one seen set,
// so a line a source files under both legal and background appears once.
func (m *merger) foldStrings(dst, src []string) []string {
	for _, s := range src {
		key := strings.ToLower(parse.CollapseSpaces(s))
		if key == "" || m.records[key] {
			continue
		}
		m.records[key] = true
		dst = append(dst, s)
	}
	return dst
}
