package model

import "strings"

// SearchType identifies how a source can be queried.
type SearchType string

const (
	SearchByName  SearchType = "name"
	SearchByPhone SearchType = "phone"
)

// SearchInput holds the identity being searched for. It is created once at
// scan start and read-only thereafter.
type SearchInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (s SearchInput) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
}

// HasName reports whether both name parts are present.
func (s SearchInput) HasName() bool {
	return strings.TrimSpace(s.FirstName) != "" && strings.TrimSpace(s.LastName) != ""
}
