package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/unlist-labs/brokerscan/internal/fetch"
	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/parse"
)

// Radaris extracts from radaris.com. Its search results page already
// renders the full record per candidate, so each match carries an embedded
// profile and the detail step needs no second fetch.
type Radaris struct {
	fetcher fetch.Fetcher
	base    string
}

// NewRadaris creates the extractor with the production base URL.
func NewRadaris(f fetch.Fetcher) *Radaris {
	return &Radaris{fetcher: f, base: "https://radaris.com"}
}

// WithBaseURL overrides the site base URL, for tests.
func (r *Radaris) WithBaseURL(u string) *Radaris {
	r.base = strings.TrimSuffix(u, "/")
	return r
}

func (r *Radaris) Kind() Kind { return KindRadaris }

func (r *Radaris) SearchTypes() []model.SearchType {
	return []model.SearchType{model.SearchByName}
}

// searchURL builds the query URL ("/ng/search?ff=First&fl=Last&fs=ST&fc=City").
func (r *Radaris) searchURL(in model.SearchInput) string {
	q := url.Values{}
	q.Set("ff", strings.TrimSpace(in.FirstName))
	q.Set("fl", strings.TrimSpace(in.LastName))
	if in.State != "" {
		q.Set("fs", stateOr(in.State))
	}
	if in.City != "" {
		q.Set("fc", in.City)
	}
	return r.base + "/ng/search?" + q.Encode()
}

// Search fetches the results page and extracts one fully-populated match
// per candidate container.
func (r *Radaris) Search(ctx context.Context, in model.SearchInput) ([]model.ProfileMatch, error) {
	res, err := r.fetcher.Fetch(ctx, r.searchURL(in))
	if err != nil {
		return nil, eris.Wrap(err, "radaris: search fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		zap.L().Debug("radaris: unparseable search document", zap.Error(err))
		return nil, nil
	}

	var matches []model.ProfileMatch
	doc.Find("div.result, div.person-row").Each(func(i int, card *goquery.Selection) {
		name := parse.CollapseSpaces(card.Find("h2, h3, .name").First().Text())
		if !parse.ValidName(name) {
			return
		}

		link := detailHref(card, "/p/")
		if link != "" {
			link = absURL(r.base, link)
		}

		id := idFromURL(r.Kind(), link, i)
		profile := r.profileFromCard(card, id, name, link)

		text := parse.CollapseSpaces(card.Text())
		m := model.ProfileMatch{
			ID:        id,
			Name:      name,
			Age:       parse.Age(text),
			DetailURL: link,
			Source:    string(r.Kind()),
			Profile:   profile,
		}
		if len(profile.Addresses) > 0 {
			a := profile.Addresses[0]
			if a.City != "" && a.State != "" {
				m.Location = a.City + ", " + a.State
			} else {
				m.Location = a.Raw
			}
		}
		matches = append(matches, m)
	})

	return matches, nil
}

// profileFromCard extracts the full record embedded in one result
// container.
func (r *Radaris) profileFromCard(card *goquery.Selection, id, name, link string) *model.PersonProfile {
	p := &model.PersonProfile{
		ID:        id,
		Name:      name,
		Age:       parse.Age(parse.CollapseSpaces(card.Text())),
		Source:    string(r.Kind()),
		SourceURL: link,
	}

	p.Phones = parse.Phones(strings.Join(sectionItems(card, "Phone Numbers"), "\n"))
	p.Emails = parse.Emails(strings.Join(sectionItems(card, "Email Addresses"), "\n"))
	p.Addresses = parse.Addresses(sectionItems(card, "Addresses"))

	for _, a := range parse.Aliases(strings.Join(sectionItems(card, "Also Known As"), ", ")) {
		p.Aliases = append(p.Aliases, model.Alias{Name: a})
	}
	p.Relatives = parse.Relatives(sectionItems(card, "Relatives"))
	p.Jobs = parse.Jobs(sectionItems(card, "Work History"))
	p.Education = parse.Educations(sectionItems(card, "Education"))
	p.BackgroundRecords = parse.DedupeStrings(sectionItems(card, "Court Records"))
	p.Assets = parse.DedupeStrings(sectionItems(card, "Property Records"))

	return p
}

// ScrapeDetail returns the profile embedded in the selected match when
// present; otherwise it fetches and parses the detail page.
func (r *Radaris) ScrapeDetail(ctx context.Context, detailURL string, hint *model.ProfileMatch) (*model.PersonProfile, error) {
	if hint != nil && hint.Profile != nil {
		return hint.Profile, nil
	}

	res, err := r.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return nil, eris.Wrap(err, "radaris: detail fetch")
	}

	doc, err := parseDoc(res.Body)
	if err != nil {
		return nil, eris.Wrap(err, "radaris: detail parse")
	}

	name := parse.CollapseSpaces(doc.Find("h1").First().Text())
	p := r.profileFromCard(doc.Selection, idFromURL(r.Kind(), detailURL, 0), name, detailURL)

	fillFromJSONLD(p, doc)
	applyHint(p, hint)

	if p.Name == "" {
		return nil, eris.Errorf("radaris: no person data at %s", detailURL)
	}
	return p, nil
}
