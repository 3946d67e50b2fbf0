// Package source implements the per-broker extraction contract: a
// lightweight search producing match summaries and a detail scrape
// producing a full raw profile, each using source-specific DOM and text
// heuristics.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/unlist-labs/brokerscan/internal/model"
)

// Kind identifies a supported people-search source. The set is closed:
// adding a source means adding a constant and an Extractor implementation.
type Kind string

const (
	KindTruePeopleSearch Kind = "truepeoplesearch"
	KindFastPeopleSearch Kind = "fastpeoplesearch"
	KindRadaris          Kind = "radaris"
	KindZabaSearch       Kind = "zabasearch"
)

// Kinds returns all source kinds in default priority order.
func Kinds() []Kind {
	return []Kind{KindTruePeopleSearch, KindFastPeopleSearch, KindRadaris, KindZabaSearch}
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", eris.Errorf("source: unknown kind %q", s)
}

// Extractor is the capability contract each source implements.
//
// Search returns an empty list rather than an error when the result
// document cannot be parsed; only transport-level failures surface as
// errors. ScrapeDetail omits fields absent from the document rather than
// failing.
type Extractor interface {
	// Kind returns the unique source identifier.
	Kind() Kind

	// SearchTypes returns which query shapes the source supports.
	SearchTypes() []model.SearchType

	// Search runs the lightweight search and returns candidate matches.
	Search(ctx context.Context, in model.SearchInput) ([]model.ProfileMatch, error)

	// ScrapeDetail fetches and parses a candidate's detail page. Sources
	// whose listings already carry the full record return the hint's
	// embedded profile without a second fetch.
	ScrapeDetail(ctx context.Context, detailURL string, hint *model.ProfileMatch) (*model.PersonProfile, error)
}

// SupportsSearch reports whether an extractor handles the given search type.
func SupportsSearch(e Extractor, st model.SearchType) bool {
	for _, t := range e.SearchTypes() {
		if t == st {
			return true
		}
	}
	return false
}
