package scan

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unlist-labs/brokerscan/internal/exposure"
	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/profile"
	"github.com/unlist-labs/brokerscan/internal/source"
	"github.com/unlist-labs/brokerscan/internal/store"
)

// Sweeper runs the unattended broker sweep: every enabled broker is
// searched for the user, the best automatic match is scraped, and the
// resulting data items are recorded as exposures. No disambiguation prompt;
// a broker with no confident match simply contributes nothing.
type Sweeper struct {
	store         store.Store
	registry      *source.Registry
	maxConcurrent int
	now           func() time.Time
}

// BrokerResult is the per-broker outcome of one sweep.
type BrokerResult struct {
	BrokerID  string `json:"broker_id"`
	Found     int    `json:"found"`
	New       int    `json:"new"`
	Error     string `json:"error,omitempty"`
	NoMatch   bool   `json:"no_match,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// SweepReport aggregates a sweep across brokers.
type SweepReport struct {
	UserID  string         `json:"user_id"`
	Brokers []BrokerResult `json:"brokers"`
	Found   int            `json:"found"`
	New     int            `json:"new"`
}

// NewSweeper creates a sweeper. maxConcurrent bounds broker parallelism.
func NewSweeper(st store.Store, reg *source.Registry, maxConcurrent int) *Sweeper {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Sweeper{store: st, registry: reg, maxConcurrent: maxConcurrent, now: time.Now}
}

// Run sweeps all enabled brokers for the given identity. Broker failures
// are recorded in the report, never propagated; the only errors returned
// are store-level.
func (s *Sweeper) Run(ctx context.Context, userID string, in model.SearchInput) (*SweepReport, error) {
	brokers, err := s.store.ListBrokers(ctx, true)
	if err != nil {
		return nil, eris.Wrap(err, "sweep: list brokers")
	}

	results := make([]BrokerResult, len(brokers))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, b := range brokers {
		g.Go(func() error {
			res := s.sweepBroker(gctx, userID, b, in)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := &SweepReport{UserID: userID, Brokers: results}
	for _, r := range results {
		report.Found += r.Found
		report.New += r.New
	}

	zap.L().Info("broker sweep finished",
		zap.String("user_id", userID),
		zap.Int("brokers", len(brokers)),
		zap.Int("found", report.Found),
		zap.Int("new", report.New))
	return report, nil
}

// sweepBroker searches one broker, scrapes the best match, and upserts the
// derived exposures.
func (s *Sweeper) sweepBroker(ctx context.Context, userID string, b model.Broker, in model.SearchInput) BrokerResult {
	res := BrokerResult{BrokerID: b.ID}

	kind, err := source.ParseKind(b.SourceKind)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	ext, err := s.registry.Get(kind)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	matches, err := ext.Search(ctx, in)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	match := bestMatch(in, matches)
	if match == nil {
		res.NoMatch = true
		return res
	}

	raw, err := ext.ScrapeDetail(ctx, match.DetailURL, match)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	prof := profile.Normalize(raw, s.now().UTC())
	listingURL := raw.SourceURL
	if listingURL == "" {
		listingURL = match.DetailURL
	}
	res.SourceURL = listingURL

	for _, rec := range exposure.FromProfile(userID, b, prof, listingURL, s.now().UTC()) {
		_, created, err := s.store.UpsertExposure(ctx, rec)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Found++
		if created {
			res.New++
		}
	}
	return res
}

// bestMatch picks the candidate a human would: the first whose name
// contains both the searched first and last name, case-insensitively. A
// sweep never guesses beyond that.
func bestMatch(in model.SearchInput, matches []model.ProfileMatch) *model.ProfileMatch {
	first := strings.ToLower(strings.TrimSpace(in.FirstName))
	last := strings.ToLower(strings.TrimSpace(in.LastName))
	for i := range matches {
		name := strings.ToLower(matches[i].Name)
		if first != "" && !strings.Contains(name, first) {
			continue
		}
		if last != "" && !strings.Contains(name, last) {
			continue
		}
		return &matches[i]
	}
	return nil
}
