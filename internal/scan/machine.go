// Package scan drives the two-phase scan workflow: search across sources,
// wait for the user to pick their profile, then scrape and normalize the
// full record. Every state change is persisted so the workflow survives the
// user-wait boundary and process restarts.
package scan

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/orchestrate"
	"github.com/unlist-labs/brokerscan/internal/profile"
	"github.com/unlist-labs/brokerscan/internal/source"
	"github.com/unlist-labs/brokerscan/internal/store"
)

// Machine executes scan state transitions against the store.
type Machine struct {
	store    store.Store
	registry *source.Registry
	engine   *orchestrate.Engine
	sources  []source.Kind // priority order
	now      func() time.Time
}

// NewMachine creates a machine over the given source priority list.
func NewMachine(st store.Store, reg *source.Registry, eng *orchestrate.Engine, sources []source.Kind) *Machine {
	return &Machine{
		store:    st,
		registry: reg,
		engine:   eng,
		sources:  sources,
		now:      time.Now,
	}
}

// Start creates a scan and runs the search phase over the configured
// sources. The scan lands in matches_found when exactly one candidate
// awaits confirm/deny, selection_required when several candidates need
// disambiguation, or no_matches when every source came up empty or failed.
func (m *Machine) Start(ctx context.Context, userID string, in model.SearchInput) (*model.Scan, error) {
	sc, err := m.store.CreateScan(ctx, userID, in)
	if err != nil {
		return nil, eris.Wrap(err, "scan: create")
	}

	if err := m.runSearch(ctx, sc, m.sources); err != nil {
		return nil, err
	}
	return sc, nil
}

// Select resolves the disambiguation step: the user picked the candidate
// with the given match id. The detail page is scraped, normalized, and
// persisted, completing the scan. A failed detail scrape drops the scan
// back to selection_required with its matches intact, so selecting again
// retries.
func (m *Machine) Select(ctx context.Context, scanID, matchID string) (*model.Scan, error) {
	sc, err := m.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, eris.Wrap(err, "scan: load")
	}
	if sc.Status != model.ScanStatusMatchesFound && sc.Status != model.ScanStatusSelectionRequired {
		return nil, eris.Errorf("scan: cannot select in status %q", sc.Status)
	}

	match := sc.MatchByID(matchID)
	if match == nil {
		return nil, eris.Errorf("scan: no match %q on scan %s", matchID, scanID)
	}

	sc.Status = model.ScanStatusProcessing
	if err := m.store.UpdateScan(ctx, sc); err != nil {
		return nil, eris.Wrap(err, "scan: persist processing")
	}

	ext, err := m.registry.Get(source.Kind(match.Source))
	if err != nil {
		return nil, eris.Wrap(err, "scan: resolve source")
	}

	raw, err := ext.ScrapeDetail(ctx, match.DetailURL, match)
	if err != nil {
		// Matches survive so the user can retry or pick another candidate.
		sc.Status = model.ScanStatusSelectionRequired
		if uerr := m.store.UpdateScan(ctx, sc); uerr != nil {
			zap.L().Error("failed to roll scan back after detail failure",
				zap.String("scan_id", sc.ID), zap.Error(uerr))
		}
		return nil, eris.Wrapf(err, "scan: detail scrape via %s", match.Source)
	}

	sc.Profile = profile.Normalize(raw, m.now().UTC())
	sc.Status = model.ScanStatusCompleted
	if err := m.store.UpdateScan(ctx, sc); err != nil {
		return nil, eris.Wrap(err, "scan: persist completion")
	}

	zap.L().Info("scan completed",
		zap.String("scan_id", sc.ID),
		zap.String("source", match.Source))
	return sc, nil
}

// Reject records that none of the presented candidates are the user, and
// re-enters the search phase at the next sources not yet tried. With every
// source exhausted the scan terminates as no_matches.
func (m *Machine) Reject(ctx context.Context, scanID string) (*model.Scan, error) {
	sc, err := m.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, eris.Wrap(err, "scan: load")
	}
	if sc.Status != model.ScanStatusMatchesFound && sc.Status != model.ScanStatusSelectionRequired {
		return nil, eris.Errorf("scan: cannot reject in status %q", sc.Status)
	}

	var untried []source.Kind
	for _, k := range m.sources {
		if !sc.Tried(string(k)) {
			untried = append(untried, k)
		}
	}
	if len(untried) == 0 {
		sc.Status = model.ScanStatusNoMatches
		sc.Matches = nil
		if err := m.store.UpdateScan(ctx, sc); err != nil {
			return nil, eris.Wrap(err, "scan: persist exhaustion")
		}
		return sc, nil
	}

	sc.Status = model.ScanStatusScanning
	sc.Matches = nil
	if err := m.store.UpdateScan(ctx, sc); err != nil {
		return nil, eris.Wrap(err, "scan: persist rescan")
	}

	if err := m.runSearch(ctx, sc, untried); err != nil {
		return nil, err
	}
	// The user has already rejected one batch; even a lone new candidate
	// goes to the selection prompt rather than back to confirm/deny.
	if sc.Status == model.ScanStatusMatchesFound {
		sc.Status = model.ScanStatusSelectionRequired
		if err := m.store.UpdateScan(ctx, sc); err != nil {
			return nil, eris.Wrap(err, "scan: persist selection")
		}
	}
	return sc, nil
}

// runSearch executes the engine over the given sources and persists the
// outcome onto the scan.
func (m *Machine) runSearch(ctx context.Context, sc *model.Scan, kinds []source.Kind) error {
	out, err := m.engine.Run(ctx, sc.Input, kinds)
	if err != nil {
		return eris.Wrap(err, "scan: search")
	}

	sc.Matches = out.Matches
	sc.Runs = append(sc.Runs, out.Runs...)
	sc.TriedSources = append(sc.TriedSources, out.Tried...)
	switch {
	case len(out.Matches) == 0:
		sc.Status = model.ScanStatusNoMatches
	case len(out.Matches) == 1:
		// A lone candidate awaits confirm/deny.
		sc.Status = model.ScanStatusMatchesFound
	default:
		// Ambiguous: the user must pick one before the detail scrape.
		sc.Status = model.ScanStatusSelectionRequired
	}

	if err := m.store.UpdateScan(ctx, sc); err != nil {
		return eris.Wrap(err, "scan: persist search outcome")
	}

	zap.L().Info("search phase finished",
		zap.String("scan_id", sc.ID),
		zap.String("status", string(sc.Status)),
		zap.Int("matches", len(sc.Matches)),
		zap.Int("sources_tried", len(out.Tried)))
	return nil
}
