package orchestrate

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/profile"
	"github.com/unlist-labs/brokerscan/internal/source"
)

// SourceURL names one detail page at one source.
type SourceURL struct {
	Kind source.Kind `json:"source"`
	URL  string      `json:"url"`
}

// MergeDetails scrapes each named detail page and merges the results into
// one consolidated profile. Pairs run concurrently; a pair whose scrape
// fails is logged and skipped. It errors only when no pair produced a
// profile.
func (e *Engine) MergeDetails(ctx context.Context, pairs []SourceURL) (*model.QuickScanProfileData, error) {
	if len(pairs) == 0 {
		return nil, eris.New("orchestrate: no source/url pairs to merge")
	}

	now := time.Now().UTC()
	profiles := make([]*model.QuickScanProfileData, len(pairs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for i, p := range pairs {
		g.Go(func() error {
			ext, err := e.registry.Get(p.Kind)
			if err != nil {
				return err
			}
			raw, err := ext.ScrapeDetail(gctx, p.URL, nil)
			if err != nil {
				zap.L().Warn("merge: detail scrape failed, skipping source",
					zap.String("source", string(p.Kind)),
					zap.String("url", p.URL),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			profiles[i] = profile.Normalize(raw, now)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "orchestrate: merge details")
	}

	merged := profile.Merge(profiles, now)
	if merged == nil {
		return nil, eris.New("orchestrate: every detail scrape failed")
	}
	return merged, nil
}
