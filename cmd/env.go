package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/unlist-labs/brokerscan/internal/fetch"
	"github.com/unlist-labs/brokerscan/internal/orchestrate"
	"github.com/unlist-labs/brokerscan/internal/scan"
	"github.com/unlist-labs/brokerscan/internal/source"
	"github.com/unlist-labs/brokerscan/internal/store"
)

// appEnv wires the store, extractors, and workflow objects every command
// needs. Callers should defer env.Close().
type appEnv struct {
	Store    store.Store
	Registry *source.Registry
	Engine   *orchestrate.Engine
	Machine  *scan.Machine
	Sweeper  *scan.Sweeper
}

func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the store, applies migrations, and builds the scan stack
// from config.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	fetcher := fetch.NewChain(fetch.Options{
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: int64(cfg.Fetch.MaxBodyKB) * 1024,
		HostRPS:      cfg.Fetch.HostRPS,
		Proxies:      cfg.Fetch.Proxies,
	})
	reg := source.DefaultRegistry(fetcher)

	mode, err := orchestrate.ParseMode(cfg.Scan.Mode)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	kinds, err := configuredSources(reg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	eng := orchestrate.New(reg, mode, cfg.Scan.MaxConcurrent)
	return &appEnv{
		Store:    st,
		Registry: reg,
		Engine:   eng,
		Machine:  scan.NewMachine(st, reg, eng, kinds),
		Sweeper:  scan.NewSweeper(st, reg, cfg.Scan.MaxConcurrent),
	}, nil
}

// configuredSources resolves the configured source order, defaulting to the
// registry's priority order.
func configuredSources(reg *source.Registry) ([]source.Kind, error) {
	if len(cfg.Scan.Sources) == 0 {
		return reg.Kinds(), nil
	}
	kinds := make([]source.Kind, 0, len(cfg.Scan.Sources))
	for _, s := range cfg.Scan.Sources {
		k, err := source.ParseKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}
