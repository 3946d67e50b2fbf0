package source

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/unlist-labs/brokerscan/internal/fetch"
	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/parse"
)

// FastPeopleSearch extracts from fastpeoplesearch.com. The site routes by
// lowercase slug ("/name/jane-doe_springfield-il") and renders phone
// listings with a type suffix ("(312) 555-0141 - Wireless").
type FastPeopleSearch struct {
	fetcher fetch.Fetcher
	base    string
}

// NewFastPeopleSearch creates the extractor with the production base URL.
func NewFastPeopleSearch(f fetch.Fetcher) *FastPeopleSearch {
	return &FastPeopleSearch{fetcher: f, base: "https://www.fastpeoplesearch.com"}
}

// WithBaseURL overrides the site base URL, for tests.
func (fp *FastPeopleSearch) WithBaseURL(u string) *FastPeopleSearch {
	fp.base = strings.TrimSuffix(u, "/")
	return fp
}

func (fp *FastPeopleSearch) Kind() Kind { return KindFastPeopleSearch }

func (fp *FastPeopleSearch) SearchTypes() []model.SearchType {
	return []model.SearchType{model.SearchByName}
}

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// slug lowercases and hyphenates a name or place the way the site's URLs
// expect.
func slug(s string) string {
	s = strings.ToLower(parse.CollapseSpaces(s))
	return strings.Trim(slugCleanRe.ReplaceAllString(s, "-"), "-")
}

// searchURL builds the slug-style query URL.
func (fp *FastPeopleSearch) searchURL(in model.SearchInput) string {
	path := fp.base + "/name/" + slug(in.FullName())
	switch {
	case in.City != "" && in.State != "":
		path += "_" + slug(in.City) + "-" + strings.ToLower(stateOr(in.State))
	case in.State != "":
		path += "_" + strings.ToLower(stateOr(in.State))
	}
	return path
}

// Search fetches the results page and extracts candidate entries.
func (fp *FastPeopleSearch) Search(ctx context.Context, in model.SearchInput) ([]model.ProfileMatch, error) {
	res, err := fp.fetcher.Fetch(ctx, fp.searchURL(in))
	if err != nil {
		return nil, eris.Wrap(err, "fastpeoplesearch: search fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		zap.L().Debug("fastpeoplesearch: unparseable search document", zap.Error(err))
		return nil, nil
	}

	var matches []model.ProfileMatch
	doc.Find("div.people-list div.card, div.search-result").Each(func(i int, card *goquery.Selection) {
		name := parse.CollapseSpaces(card.Find("h2, h3, .larger").First().Text())
		if !parse.ValidName(name) {
			return
		}

		link := detailHref(card, "/person/")
		if link == "" {
			return
		}
		link = absURL(fp.base, link)

		text := parse.CollapseSpaces(card.Text())
		m := model.ProfileMatch{
			ID:        idFromURL(fp.Kind(), link, i),
			Name:      name,
			Age:       parse.Age(text),
			DetailURL: link,
			Source:    string(fp.Kind()),
		}
		if addr := card.Find(".address, .current-address").First(); addr.Length() > 0 {
			m.Location = parse.CollapseSpaces(addr.Text())
		} else if loc := livesInRe.FindStringSubmatch(text); loc != nil {
			m.Location = parse.CollapseSpaces(loc[1])
		}
		matches = append(matches, m)
	})

	return matches, nil
}

// phoneTypeRe splits "(312) 555-0141 - Wireless" into number and type.
var phoneTypeRe = regexp.MustCompile(`^(.*?\d{4})\s*[-–]\s*([A-Za-z ]+)$`)

// ScrapeDetail fetches a candidate's detail page and extracts the full raw
// profile.
func (fp *FastPeopleSearch) ScrapeDetail(ctx context.Context, detailURL string, hint *model.ProfileMatch) (*model.PersonProfile, error) {
	res, err := fp.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return nil, eris.Wrap(err, "fastpeoplesearch: detail fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fastpeoplesearch: detail parse")
	}

	p := &model.PersonProfile{
		ID:        idFromURL(fp.Kind(), detailURL, 0),
		Name:      parse.CollapseSpaces(doc.Find("h1").First().Text()),
		Age:       parse.Age(parse.CollapseSpaces(doc.Find("h1").First().Parent().Text())),
		Source:    string(fp.Kind()),
		SourceURL: detailURL,
	}

	p.Phones = fp.phones(sectionItems(doc.Selection, "Phone Numbers"))
	p.Emails = parse.Emails(strings.Join(sectionItems(doc.Selection, "Email Addresses"), "\n"))

	rawAddrs := append(sectionItems(doc.Selection, "Current Home Address"), sectionItems(doc.Selection, "Past Addresses")...)
	p.Addresses = parse.Addresses(rawAddrs)

	for _, a := range parse.Aliases(strings.Join(sectionItems(doc.Selection, "AKA"), ", ")) {
		p.Aliases = append(p.Aliases, model.Alias{Name: a})
	}
	p.Relatives = parse.Relatives(sectionItems(doc.Selection, "Relatives"))

	fillFromJSONLD(p, doc)
	applyHint(p, hint)

	if p.Name == "" {
		return nil, eris.Errorf("fastpeoplesearch: no person data at %s", detailURL)
	}
	return p, nil
}

// phones parses listing rows that carry an optional type suffix,
// de-duplicated by normalized digits with the first number primary.
func (fp *FastPeopleSearch) phones(items []string) []model.Phone {
	var out []model.Phone
	for _, it := range items {
		number, ptype := it, ""
		if m := phoneTypeRe.FindStringSubmatch(parse.CollapseSpaces(it)); m != nil {
			number, ptype = m[1], strings.ToLower(parse.CollapseSpaces(m[2]))
		}
		if parse.NormalizePhone(number) == "" {
			continue
		}
		out = append(out, model.Phone{Number: number, Type: ptype})
	}
	return parse.DedupePhones(out)
}
