package source

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/unlist-labs/brokerscan/internal/fetch"
	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/parse"
)

// TruePeopleSearch extracts from truepeoplesearch.com. Search results are
// card-shaped summaries; the full record lives behind a per-person detail
// page.
type TruePeopleSearch struct {
	fetcher fetch.Fetcher
	base    string
}

// NewTruePeopleSearch creates the extractor with the production base URL.
func NewTruePeopleSearch(f fetch.Fetcher) *TruePeopleSearch {
	return &TruePeopleSearch{fetcher: f, base: "https://www.truepeoplesearch.com"}
}

// WithBaseURL overrides the site base URL, for tests.
func (t *TruePeopleSearch) WithBaseURL(u string) *TruePeopleSearch {
	t.base = strings.TrimSuffix(u, "/")
	return t
}

func (t *TruePeopleSearch) Kind() Kind { return KindTruePeopleSearch }

func (t *TruePeopleSearch) SearchTypes() []model.SearchType {
	return []model.SearchType{model.SearchByName}
}

// searchURL builds the query URL. The site takes the name verbatim and a
// combined "City, ST" locality parameter.
func (t *TruePeopleSearch) searchURL(in model.SearchInput) string {
	q := url.Values{}
	q.Set("name", in.FullName())
	switch {
	case in.City != "" && in.State != "":
		q.Set("citystatezip", in.City+", "+stateOr(in.State))
	case in.Zip != "":
		q.Set("citystatezip", in.Zip)
	case in.State != "":
		q.Set("citystatezip", stateOr(in.State))
	}
	return t.base + "/results?" + q.Encode()
}

var livesInRe = regexp.MustCompile(`(?i)lives in\s+([A-Za-z .'\-]+,\s*[A-Za-z]{2})`)

// Search fetches the results page and extracts candidate cards. A document
// with no recognizable cards yields an empty list, not an error.
func (t *TruePeopleSearch) Search(ctx context.Context, in model.SearchInput) ([]model.ProfileMatch, error) {
	res, err := t.fetcher.Fetch(ctx, t.searchURL(in))
	if err != nil {
		return nil, eris.Wrap(err, "truepeoplesearch: search fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		zap.L().Debug("truepeoplesearch: unparseable search document", zap.Error(err))
		return nil, nil
	}

	var matches []model.ProfileMatch
	doc.Find("div.card-summary, div.card").Each(func(i int, card *goquery.Selection) {
		name := parse.CollapseSpaces(card.Find(".h4, h2, .name").First().Text())
		if !parse.ValidName(name) {
			return
		}

		link := detailHref(card, "/find/person/")
		if link == "" {
			// Listings here only link onward; a card without a usable
			// detail link cannot be scraped.
			return
		}
		link = absURL(t.base, link)

		text := parse.CollapseSpaces(card.Text())
		m := model.ProfileMatch{
			ID:        idFromURL(t.Kind(), link, i),
			Name:      name,
			Age:       parse.Age(text),
			DetailURL: link,
			Source:    string(t.Kind()),
		}
		if loc := livesInRe.FindStringSubmatch(text); loc != nil {
			m.Location = parse.CollapseSpaces(loc[1])
		}
		matches = append(matches, m)
	})

	return matches, nil
}

// ScrapeDetail fetches a candidate's detail page and extracts the full raw
// profile. Missing sections are omitted; embedded JSON-LD fills any gaps.
func (t *TruePeopleSearch) ScrapeDetail(ctx context.Context, detailURL string, hint *model.ProfileMatch) (*model.PersonProfile, error) {
	res, err := t.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return nil, eris.Wrap(err, "truepeoplesearch: detail fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		return nil, eris.Wrap(err, "truepeoplesearch: detail parse")
	}

	p := &model.PersonProfile{
		ID:        idFromURL(t.Kind(), detailURL, 0),
		Name:      parse.CollapseSpaces(doc.Find("h1").First().Text()),
		Age:       parse.Age(parse.CollapseSpaces(doc.Find("h1").First().Parent().Text())),
		Source:    string(t.Kind()),
		SourceURL: detailURL,
	}

	p.Phones = parse.Phones(strings.Join(sectionItems(doc.Selection, "Phone Numbers"), "\n"))
	p.Emails = parse.Emails(strings.Join(sectionItems(doc.Selection, "Email Addresses"), "\n"))

	rawAddrs := append(sectionItems(doc.Selection, "Current Address"), sectionItems(doc.Selection, "Previous Addresses")...)
	p.Addresses = parse.Addresses(rawAddrs)

	for _, a := range parse.Aliases(strings.Join(sectionItems(doc.Selection, "Also Known As"), ", ")) {
		p.Aliases = append(p.Aliases, model.Alias{Name: a})
	}
	p.Relatives = parse.Relatives(sectionItems(doc.Selection, "Possible Relatives"))

	fillFromJSONLD(p, doc)
	applyHint(p, hint)

	if p.Name == "" {
		return nil, eris.Errorf("truepeoplesearch: no person data at %s", detailURL)
	}
	return p, nil
}

// detailHref returns the first link in a selection whose href contains the
// given path fragment.
func detailHref(sel *goquery.Selection, fragment string) string {
	var href string
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if strings.Contains(h, fragment) {
			href = h
			return false
		}
		return true
	})
	return href
}

// stateOr returns the two-letter form of a state when recognized, or the
// input unchanged.
func stateOr(s string) string {
	if abbr := parse.StateAbbr(s); abbr != "" {
		return abbr
	}
	return s
}

// fillFromJSONLD supplements a DOM-extracted profile with fields from an
// embedded schema.org Person block, if present.
func fillFromJSONLD(p *model.PersonProfile, doc *goquery.Document) {
	ld := personFromJSONLD(doc)
	if ld == nil {
		return
	}
	if p.Name == "" {
		p.Name = ld.Name
	}
	if len(p.Phones) == 0 {
		p.Phones = ld.Phones
	}
	if len(p.Emails) == 0 {
		p.Emails = ld.Emails
	}
	if len(p.Addresses) == 0 {
		p.Addresses = ld.Addresses
	}
	if len(p.Aliases) == 0 {
		p.Aliases = ld.Aliases
	}
}

// applyHint backfills identity fields from the selected match when the
// document omitted them.
func applyHint(p *model.PersonProfile, hint *model.ProfileMatch) {
	if hint == nil {
		return
	}
	if p.Name == "" {
		p.Name = hint.Name
	}
	if p.Age == 0 {
		p.Age = hint.Age
	}
}
