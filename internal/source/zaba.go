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

// ZabaSearch extracts from zabasearch.com. It is the only source here that
// supports reverse phone lookup, and its listings mask phone digits
// ("(312) ***-**41"), which we surface as a hint rather than a phone.
type ZabaSearch struct {
	fetcher fetch.Fetcher
	base    string
}

// NewZabaSearch creates the extractor with the production base URL.
func NewZabaSearch(f fetch.Fetcher) *ZabaSearch {
	return &ZabaSearch{fetcher: f, base: "https://www.zabasearch.com"}
}

// WithBaseURL overrides the site base URL, for tests.
func (z *ZabaSearch) WithBaseURL(u string) *ZabaSearch {
	z.base = strings.TrimSuffix(u, "/")
	return z
}

func (z *ZabaSearch) Kind() Kind { return KindZabaSearch }

func (z *ZabaSearch) SearchTypes() []model.SearchType {
	return []model.SearchType{model.SearchByName, model.SearchByPhone}
}

// searchURL builds either a name query or a reverse phone query.
func (z *ZabaSearch) searchURL(in model.SearchInput) string {
	if in.Phone != "" {
		return z.base + "/phone/" + parse.NormalizePhone(in.Phone)
	}
	q := url.Values{}
	q.Set("name", in.FullName())
	if in.State != "" {
		q.Set("state", stateOr(in.State))
	}
	return z.base + "/people?" + q.Encode()
}

// maskedPhoneRe matches partially-redacted numbers in listings.
var maskedPhoneRe = regexp.MustCompile(`\(?\d{3}\)?[\s.-]*[\d*]{3}[\s.-]*[\d*]{4}`)

// Search fetches the results page and extracts candidate entries. Listings
// that only advertise a paywalled report, with no onward detail link, are
// dropped.
func (z *ZabaSearch) Search(ctx context.Context, in model.SearchInput) ([]model.ProfileMatch, error) {
	if in.Phone != "" && parse.NormalizePhone(in.Phone) == "" {
		return nil, eris.Errorf("zabasearch: unusable phone query %q", in.Phone)
	}

	res, err := z.fetcher.Fetch(ctx, z.searchURL(in))
	if err != nil {
		return nil, eris.Wrap(err, "zabasearch: search fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		zap.L().Debug("zabasearch: unparseable search document", zap.Error(err))
		return nil, nil
	}

	var matches []model.ProfileMatch
	doc.Find("div.person, li.result").Each(func(i int, card *goquery.Selection) {
		name := parse.CollapseSpaces(card.Find("h2, h3, .name").First().Text())
		if !parse.ValidName(name) {
			return
		}

		link := detailHref(card, "/people/")
		if link == "" {
			return
		}
		link = absURL(z.base, link)

		text := parse.CollapseSpaces(card.Text())
		m := model.ProfileMatch{
			ID:        idFromURL(z.Kind(), link, i),
			Name:      name,
			Age:       parse.Age(text),
			DetailURL: link,
			Source:    string(z.Kind()),
		}
		if loc := card.Find(".location, .address").First(); loc.Length() > 0 {
			m.Location = parse.CollapseSpaces(loc.Text())
		}
		if masked := maskedPhoneRe.FindString(text); strings.Contains(masked, "*") {
			m.PhoneHint = parse.CollapseSpaces(masked)
		}
		matches = append(matches, m)
	})

	return matches, nil
}

// ScrapeDetail fetches a candidate's detail page and extracts the full raw
// profile. Masked numbers never make it into the phone list.
func (z *ZabaSearch) ScrapeDetail(ctx context.Context, detailURL string, hint *model.ProfileMatch) (*model.PersonProfile, error) {
	res, err := z.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return nil, eris.Wrap(err, "zabasearch: detail fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zabasearch: detail parse")
	}

	p := &model.PersonProfile{
		ID:        idFromURL(z.Kind(), detailURL, 0),
		Name:      parse.CollapseSpaces(doc.Find("h1").First().Text()),
		Age:       parse.Age(parse.CollapseSpaces(doc.Find("h1").First().Parent().Text())),
		Source:    string(z.Kind()),
		SourceURL: detailURL,
	}

	p.Phones = parse.Phones(strings.Join(sectionItems(doc.Selection, "Phone Numbers"), "\n"))
	p.Emails = parse.Emails(strings.Join(sectionItems(doc.Selection, "Email Addresses"), "\n"))

	rawAddrs := append(sectionItems(doc.Selection, "Last Known Address"), sectionItems(doc.Selection, "Past Addresses")...)
	p.Addresses = parse.Addresses(rawAddrs)

	for _, a := range parse.Aliases(strings.Join(sectionItems(doc.Selection, "Also Known As"), ", ")) {
		p.Aliases = append(p.Aliases, model.Alias{Name: a})
	}
	p.Relatives = parse.Relatives(sectionItems(doc.Selection, "Possible Associates"))

	fillFromJSONLD(p, doc)
	applyHint(p, hint)

	if p.Name == "" {
		return nil, eris.Errorf("zabasearch: no person data at %s", detailURL)
	}
	return p, nil
}
