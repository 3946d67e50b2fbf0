// Package fetch retrieves broker pages with graceful degradation: a direct
// request first, then each configured proxy endpoint in order, discarding
// bot-challenge responses along the way.
package fetch

import (
	"context"
)

// Result holds an acceptable fetched page body and how it was obtained.
type Result struct {
	Body       []byte
	FinalURL   string
	Via        string // "direct" or the proxy endpoint host
	StatusCode int
}

// Fetcher fetches a single URL and returns its body, or an error when no
// attempt produced an acceptable response. Errors are soft: callers treat
// them as "nothing retrieved", never as a reason to abort a wider run.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}
