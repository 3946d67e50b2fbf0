package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/parse"
)

// personFromJSONLD scans embedded schema.org JSON-LD blocks for a Person
// record. Some brokers ship the whole profile this way, making it a cheap
// fallback when the DOM heuristics come up empty.
func personFromJSONLD(doc *goquery.Document) *model.PersonProfile {
	var person *model.PersonProfile

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" || !gjson.Valid(raw) {
			return true
		}

		root := gjson.Parse(raw)
		candidates := []gjson.Result{root}
		if root.IsArray() {
			candidates = root.Array()
		} else if g := root.Get("@graph"); g.IsArray() {
			candidates = g.Array()
		}

		for _, c := range candidates {
			if !strings.EqualFold(c.Get("@type").String(), "Person") {
				continue
			}
			if p := personFromRecord(c); p != nil {
				person = p
				return false
			}
		}
		return true
	})

	return person
}

// personFromRecord maps one JSON-LD Person object to a raw profile.
func personFromRecord(rec gjson.Result) *model.PersonProfile {
	name := parse.CollapseSpaces(rec.Get("name").String())
	if name == "" {
		return nil
	}

	p := &model.PersonProfile{Name: name}

	for _, tel := range stringList(rec.Get("telephone")) {
		p.Phones = append(p.Phones, model.Phone{Number: tel})
	}
	p.Phones = parse.DedupePhones(p.Phones)

	for _, e := range stringList(rec.Get("email")) {
		p.Emails = append(p.Emails, parse.Emails(e)...)
	}
	p.Emails = parse.DedupeStrings(p.Emails)

	for _, addr := range addressList(rec.Get("address")) {
		p.Addresses = append(p.Addresses, addr)
	}
	if len(p.Addresses) > 0 {
		p.Addresses[0].Current = true
	}

	for _, alias := range stringList(rec.Get("alternateName")) {
		if parse.ValidName(alias) {
			p.Aliases = append(p.Aliases, model.Alias{Name: alias})
		}
	}

	return p
}

// stringList flattens a JSON-LD value that may be a string or an array of
// strings.
func stringList(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if v.IsArray() {
		var out []string
		for _, item := range v.Array() {
			if s := parse.CollapseSpaces(item.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := parse.CollapseSpaces(v.String()); s != "" {
		return []string{s}
	}
	return nil
}

// addressList maps JSON-LD PostalAddress objects (single or array) to
// split addresses.
func addressList(v gjson.Result) []model.Address {
	if !v.Exists() {
		return nil
	}
	records := []gjson.Result{v}
	if v.IsArray() {
		records = v.Array()
	}

	var out []model.Address
	for _, rec := range records {
		a := model.Address{
			Street: parse.CollapseSpaces(rec.Get("streetAddress").String()),
			City:   parse.CollapseSpaces(rec.Get("addressLocality").String()),
			State:  parse.StateAbbr(rec.Get("addressRegion").String()),
			Zip:    parse.CollapseSpaces(rec.Get("postalCode").String()),
		}
		if a.Street == "" && a.City == "" {
			continue
		}
		if a.State == "" && a.Zip != "" {
			a.State = parse.StateForZip(a.Zip)
		}
		out = append(out, a)
	}
	return out
}
