// Package restclient implements the quota-aware HTTP client that every
// source adapter fetches through. One Client serves one backend: quota
// tracking is per backend, so pacing against the hosting API never stalls
// fetches against the quality or testing APIs.
package restclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
)

const (
	defaultTimeout = 30 * time.Second

	// rateResetMargin pads the server-reported reset time so the first call
	// after waking lands inside the fresh quota window.
	rateResetMargin = time.Second

	// retryBaseDelay scales linearly with the attempt number.
	retryBaseDelay = 500 * time.Millisecond
)

// Rate limit headers shared by all four backends.
const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// Options configure a Client.
type Options struct {
	Token      string
	Retries    int           // transient failures retried this many times after the first attempt
	RateBuffer int           // sleep when remaining quota drops to this value or below
	Timeout    time.Duration // per-request timeout; zero means the default
	HTTPClient *http.Client  // optional transport override
}

// Client is a rate limited GET client for one REST backend. Safe for
// concurrent use; the quota counters are the only mutable state and are
// guarded by mu. Workers sleeping out a quota window never hold the lock.
type Client struct {
	backend string
	token   string
	httpc   *http.Client
	retries int
	buffer  int

	// Injection points for tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu        sync.Mutex
	remaining int // -1 until the first response reports quota
	resetAt   time.Time
}

var _ contract.RestClient = (*Client)(nil)

// New builds a client for the named backend.
func New(backend string, opts Options) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpc = &http.Client{Timeout: timeout}
	}
	return &Client{
		backend:   backend,
		token:     opts.Token,
		httpc:     httpc,
		retries:   max(opts.Retries, 0),
		buffer:    max(opts.RateBuffer, 0),
		sleep:     sleepContext,
		now:       time.Now,
		remaining: -1,
	}
}

// Fetch performs one GET against rawURL with params merged into its query.
// It returns the response body and the rel="next" link from the pagination
// headers. Transient failures are retried with a linear backoff; 404, 401
// and 403 are classified and returned immediately.
func (c *Client) Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, string, error) {
	fullURL, err := mergeQuery(rawURL, params)
	if err != nil {
		return nil, "", fmt.Errorf("building %s request URL: %w", c.backend, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, time.Duration(attempt)*retryBaseDelay); err != nil {
				return nil, "", err
			}
		}
		if err := c.waitForQuota(ctx); err != nil {
			return nil, "", err
		}

		body, next, err := c.doOnce(ctx, fullURL)
		if err == nil {
			return body, next, nil
		}
		if !contract.IsTransient(err) {
			return nil, "", err
		}
		lastErr = err
	}
	return nil, "", lastErr
}

// waitForQuota blocks the calling goroutine until the backend's quota window
// resets, when the tracked remaining count has dropped to the safety buffer.
// The wait duration is computed under the lock but the sleep happens outside
// it, so paced workers never block each other.
func (c *Client) waitForQuota(ctx context.Context) error {
	c.mu.Lock()
	var wait time.Duration
	if c.remaining >= 0 && c.remaining <= c.buffer {
		if until := c.resetAt.Add(rateResetMargin).Sub(c.now()); until > 0 {
			wait = until
		}
	}
	resetAt := c.resetAt
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	contract.LogWarn("rate limit pacing", fmt.Errorf("%s quota low, resuming at %s", c.backend, resetAt.Format(time.RFC3339)))
	return c.sleep(ctx, wait)
}

func (c *Client) doOnce(ctx context.Context, fullURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Cancellation must surface as-is so the pipeline aborts instead of
		// burning retries.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		return nil, "", &contract.TransientError{Backend: c.backend, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	// Quota headers arrive on every response, error responses included.
	c.updateQuota(resp.Header)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp.Body)
		return nil, "", &contract.NotFoundError{Backend: c.backend, URL: fullURL}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		drain(resp.Body)
		return nil, "", &contract.AuthorizationError{Backend: c.backend, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		drain(resp.Body)
		return nil, "", &contract.TransientError{
			Backend: c.backend,
			Status:  resp.StatusCode,
			Err:     errors.New(http.StatusText(resp.StatusCode)),
		}
	case resp.StatusCode != http.StatusOK:
		drain(resp.Body)
		return nil, "", fmt.Errorf("%s backend returned unexpected status %d for %s", c.backend, resp.StatusCode, fullURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &contract.TransientError{Backend: c.backend, Err: err}
	}
	return body, parseNextLink(resp.Header.Get("Link")), nil
}

// updateQuota records the rate limit counters from one response.
func (c *Client) updateQuota(h http.Header) {
	rem, remOK := parseHeaderInt(h.Get(headerRateRemaining))
	reset, resetOK := parseHeaderInt(h.Get(headerRateReset))
	if !remOK && !resetOK {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if remOK {
		c.remaining = int(rem)
	}
	if resetOK {
		c.resetAt = time.Unix(reset, 0)
	}
}

func parseHeaderInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseNextLink extracts the rel="next" target from an RFC 5988 Link header.
// Returns "" when the header is missing or carries no next relation.
func parseNextLink(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return target
			}
		}
	}
	return ""
}

// mergeQuery appends params to rawURL's existing query string. Params with
// the same key replace the URL's own values.
func mergeQuery(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}
