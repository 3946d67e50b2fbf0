package source

import (
	"github.com/rotisserie/eris"

	"github.com/unlist-labs/brokerscan/internal/fetch"
	"github.com/unlist-labs/brokerscan/internal/model"
)

// Registry maps source kinds to their Extractor implementations.
type Registry struct {
	extractors map[Kind]Extractor
	order      []Kind // registration order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[Kind]Extractor),
	}
}

// DefaultRegistry registers every built-in extractor against the given
// fetcher, in default priority order.
func DefaultRegistry(f fetch.Fetcher) *Registry {
	r := NewRegistry()
	r.Register(NewTruePeopleSearch(f))
	r.Register(NewFastPeopleSearch(f))
	r.Register(NewRadaris(f))
	r.Register(NewZabaSearch(f))
	return r
}

// Register adds an extractor to the registry.
func (r *Registry) Register(e Extractor) {
	kind := e.Kind()
	if _, exists := r.extractors[kind]; !exists {
		r.order = append(r.order, kind)
	}
	r.extractors[kind] = e
}

// Get returns an extractor by kind.
func (r *Registry) Get(kind Kind) (Extractor, error) {
	e, ok := r.extractors[kind]
	if !ok {
		return nil, eris.Errorf("source: no extractor registered for %q", kind)
	}
	return e, nil
}

// All returns all extractors in registration order.
func (r *Registry) All() []Extractor {
	out := make([]Extractor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.extractors[k])
	}
	return out
}

// Kinds returns all registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.order))
	copy(out, r.order)
	return out
}

// Supporting returns the registered kinds that handle the given search
// type, in registration order.
func (r *Registry) Supporting(st model.SearchType) []Kind {
	var out []Kind
	for _, k := range r.order {
		if SupportsSearch(r.extractors[k], st) {
			out = append(out, k)
		}
	}
	return out
}
