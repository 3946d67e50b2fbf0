package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// minBodyBytes is the smallest body treated as a real page. Anything
// shorter is an error stub or an empty shell.
const minBodyBytes = 200

// Options configures a Chain.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	HostRPS      float64  // outbound requests per second per target host
	Proxies      []string // ordered proxy endpoints, tried after the direct attempt
}

// attempt is one rung of the fallback ladder: the direct request or one
// proxy endpoint.
type attempt struct {
	name    string
	build   func(target string) string
	breaker *circuitBreaker
}

// Chain is the resilient fetcher: direct request first, then each proxy in
// configured order, short-circuiting on the first acceptable response.
// The ordering is deliberate (predictable proxy load, fastest path first)
// and is never parallelized.
type Chain struct {
	client   *retryablehttp.Client
	ua       string
	maxBody  int64
	attempts []attempt

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	hostRPS  float64
}

// NewChain creates a fetch chain from options. An empty proxy list leaves
// only the direct attempt.
func NewChain(opts Options) *Chain {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 512 * 1024
	}
	if opts.HostRPS == 0 {
		opts.HostRPS = 1
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = nil
	client.HTTPClient.Timeout = opts.Timeout

	c := &Chain{
		client:   client,
		ua:       opts.UserAgent,
		maxBody:  opts.MaxBodyBytes,
		limiters: make(map[string]*rate.Limiter),
		hostRPS:  opts.HostRPS,
	}

	c.attempts = append(c.attempts, attempt{
		name:    "direct",
		build:   func(target string) string { return target },
		breaker: newCircuitBreaker("direct", 5, 30*time.Second, 30*time.Second),
	})
	for _, p := range opts.Proxies {
		c.attempts = append(c.attempts, attempt{
			name:    proxyName(p),
			build:   proxyBuilder(p),
			breaker: newCircuitBreaker(proxyName(p), 3, 30*time.Second, 60*time.Second),
		})
	}

	return c
}

// Fetch tries each attempt in order and returns the first acceptable body.
// Every failure is soft: it is logged and the chain moves on. The returned
// error only reports that all attempts were exhausted.
func (c *Chain) Fetch(ctx context.Context, target string) (*Result, error) {
	if err := c.waitHost(ctx, target); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limit wait")
	}

	for _, a := range c.attempts {
		if a.breaker.isOpen() {
			zap.L().Debug("fetch: skipping open circuit",
				zap.String("endpoint", a.name),
				zap.String("url", target),
			)
			continue
		}

		res, err := c.doAttempt(ctx, a, target)
		if err != nil {
			zap.L().Debug("fetch: attempt failed, trying next",
				zap.String("endpoint", a.name),
				zap.String("url", target),
				zap.Error(err),
			)
			a.breaker.recordFailure()
			continue
		}

		a.breaker.recordSuccess()
		res.Via = a.name
		return res, nil
	}

	return nil, eris.Errorf("fetch: all attempts failed for %s", target)
}

// doAttempt performs one request and judges the response.
func (c *Chain) doAttempt(ctx context.Context, a attempt, target string) (*Result, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, a.build(target), nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("status %d", resp.StatusCode)
	}
	if len(body) < minBodyBytes {
		return nil, eris.New("body too short")
	}

	return &Result{
		Body:       body,
		FinalURL:   target,
		StatusCode: resp.StatusCode,
	}, nil
}

// waitHost applies the per-target-host rate limit.
func (c *Chain) waitHost(ctx context.Context, target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return eris.Wrapf(err, "parse url %s", target)
	}

	c.mu.Lock()
	lim, ok := c.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.hostRPS), 1)
		c.limiters[u.Host] = lim
	}
	c.mu.Unlock()

	return lim.Wait(ctx)
}

// proxyBuilder wraps a target URL for a proxy endpoint. Endpoints with a
// "{url}" placeholder get the escaped target substituted; otherwise the
// target is appended as a url query parameter.
func proxyBuilder(endpoint string) func(string) string {
	return func(target string) string {
		escaped := url.QueryEscape(target)
		if strings.Contains(endpoint, "{url}") {
			return strings.ReplaceAll(endpoint, "{url}", escaped)
		}
		sep := "?url="
		if strings.Contains(endpoint, "?") {
			sep = "&url="
		}
		return endpoint + sep + escaped
	}
}

// proxyName derives a short log label from a proxy endpoint URL.
func proxyName(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return endpoint
}
