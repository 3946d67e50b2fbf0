// Package orchestrate runs a search across multiple unreliable sources and
// aggregates whatever succeeds. A source failing, panicking, or returning
// nothing never aborts the run; every attempt leaves an audit entry.
package orchestrate

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/source"
)

// Mode selects the aggregation strategy for a run.
type Mode string

const (
	// ModeStopOnResults tries sources serially in priority order and stops
	// at the first one that yields matches. Cheapest path to an answer.
	ModeStopOnResults Mode = "stop_on_results"

	// ModeExhaustive queries every source concurrently and merges all
	// results. Used when completeness matters more than latency.
	ModeExhaustive Mode = "exhaustive"
)

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStopOnResults, ModeExhaustive:
		return Mode(s), nil
	}
	return "", eris.Errorf("orchestrate: unknown mode %q", s)
}

// Outcome is the aggregated result of one orchestrated search.
type Outcome struct {
	// Matches are the surviving candidates across all queried sources,
	// de-duplicated by identity.
	Matches []model.ProfileMatch

	// Runs records the per-source audit trail in attempt order.
	Runs []model.ScraperRunResult

	// Tried lists the sources actually attempted, in order.
	Tried []string
}

// Engine fans a search out to registered extractors.
type Engine struct {
	registry      *source.Registry
	mode          Mode
	maxConcurrent int
}

// New creates an engine. maxConcurrent bounds exhaustive-mode parallelism;
// values below 1 are treated as 1.
func New(reg *source.Registry, mode Mode, maxConcurrent int) *Engine {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Engine{registry: reg, mode: mode, maxConcurrent: maxConcurrent}
}

// Run executes the search against the given sources in order. Sources that
// do not support the input's search type are skipped without an audit
// entry. Run returns an error only for invalid arguments, never for source
// failures.
func (e *Engine) Run(ctx context.Context, in model.SearchInput, kinds []source.Kind) (*Outcome, error) {
	st := searchType(in)
	if st == model.SearchByName && !in.HasName() {
		return nil, eris.New("orchestrate: search input has neither name nor phone")
	}

	var able []source.Extractor
	for _, k := range kinds {
		ext, err := e.registry.Get(k)
		if err != nil {
			return nil, eris.Wrap(err, "orchestrate: resolve sources")
		}
		if source.SupportsSearch(ext, st) {
			able = append(able, ext)
		}
	}

	if e.mode == ModeExhaustive {
		return e.runExhaustive(ctx, in, able), nil
	}
	return e.runSerial(ctx, in, able), nil
}

// runSerial tries each source in order and stops at the first non-empty
// result set.
func (e *Engine) runSerial(ctx context.Context, in model.SearchInput, exts []source.Extractor) *Outcome {
	out := &Outcome{}
	for _, ext := range exts {
		matches, err := e.search(ctx, ext, in)
		out.Tried = append(out.Tried, string(ext.Kind()))
		out.Runs = append(out.Runs, runResult(ext.Kind(), matches, err))
		if err != nil {
			zap.L().Warn("source search failed",
				zap.String("source", string(ext.Kind())),
				zap.Error(err))
			continue
		}
		if len(matches) > 0 {
			out.Matches = dedupeMatches(matches)
			break
		}
	}
	return out
}

// runExhaustive queries every source concurrently and merges the results in
// source priority order, so aggregation is deterministic regardless of
// completion order.
func (e *Engine) runExhaustive(ctx context.Context, in model.SearchInput, exts []source.Extractor) *Outcome {
	type slot struct {
		matches []model.ProfileMatch
		err     error
	}
	slots := make([]slot, len(exts))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i, ext := range exts {
		g.Go(func() error {
			matches, err := e.search(ctx, ext, in)
			mu.Lock()
			slots[i] = slot{matches: matches, err: err}
			mu.Unlock()
			return nil // failures stay per-source
		})
	}
	_ = g.Wait()

	out := &Outcome{}
	var all []model.ProfileMatch
	for i, ext := range exts {
		out.Tried = append(out.Tried, string(ext.Kind()))
		out.Runs = append(out.Runs, runResult(ext.Kind(), slots[i].matches, slots[i].err))
		if slots[i].err != nil {
			zap.L().Warn("source search failed",
				zap.String("source", string(ext.Kind())),
				zap.Error(slots[i].err))
			continue
		}
		all = append(all, slots[i].matches...)
	}
	out.Matches = dedupeMatches(all)
	return out
}

// search invokes one extractor with panic isolation. A panicking source is
// reported as a failed run, not a crashed scan.
func (e *Engine) search(ctx context.Context, ext source.Extractor, in model.SearchInput) (matches []model.ProfileMatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			matches = nil
			err = eris.Errorf("orchestrate: source %s panicked: %v", ext.Kind(), r)
		}
	}()
	return ext.Search(ctx, in)
}

func runResult(kind source.Kind, matches []model.ProfileMatch, err error) model.ScraperRunResult {
	r := model.ScraperRunResult{
		Source:  string(kind),
		Success: err == nil,
		Matches: len(matches),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// searchType infers the query shape: a phone-only input is a reverse phone
// lookup, anything else is a name search.
func searchType(in model.SearchInput) model.SearchType {
	if in.Phone != "" && !in.HasName() {
		return model.SearchByPhone
	}
	return model.SearchByName
}

// dedupeMatches drops candidates that repeat an identity already seen,
// keyed on lowercased name plus location. First source wins; cross-source
// repeats of the same person collapse to the highest-priority listing.
func dedupeMatches(matches []model.ProfileMatch) []model.ProfileMatch {
	if len(matches) == 0 {
		return nil
	}
	var out []model.ProfileMatch
	seen := make(map[string]bool)
	for _, m := range matches {
		key := strings.ToLower(m.Name) + "|" + strings.ToLower(m.Location)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}
