package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	maxAttempts    = 3
	initialBackoff = time.Second
)

// HTTPClient wraps http.Client with the shared source-client behaviors:
// a minimum inter-request delay and a bounded retry loop for transient
// failures. 5xx responses and network-level errors are retried with
// exponential backoff (1s, 2s); everything else surfaces immediately as a
// classified *Error.
type HTTPClient struct {
	client    *http.Client
	source    string
	userAgent string
	minDelay  time.Duration

	mu       sync.Mutex
	lastSent time.Time
}

// NewHTTPClient builds a polite client for one source.
func NewHTTPClient(source, userAgent string, minDelay time.Duration) *HTTPClient {
	return &HTTPClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		source:    source,
		userAgent: userAgent,
		minDelay:  minDelay,
	}
}

// wait blocks until the politeness delay since the previous request has
// elapsed, or the context is done.
func (c *HTTPClient) wait(ctx context.Context) error {
	c.mu.Lock()
	sleep := c.minDelay - time.Since(c.lastSent)
	c.lastSent = time.Now().Add(sleep)
	c.mu.Unlock()

	if sleep <= 0 {
		return nil
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Get fetches a URL, applying politeness and the retry policy, and returns
// the response body.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, &Error{Kind: KindRequest, Source: c.source, Msg: "request canceled", Err: ctx.Err()}
			case <-timer.C:
			}
			backoff *= 2
		}

		if err := c.wait(ctx); err != nil {
			return nil, &Error{Kind: KindRequest, Source: c.source, Msg: "request canceled", Err: err}
		}

		body, err := c.once(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if KindOf(err) != KindTransient {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *HTTPClient) once(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: c.source, Msg: fmt.Sprintf("invalid request for %s", url), Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failures count as transient for retry purposes.
		return nil, &Error{Kind: KindTransient, Source: c.source, Msg: fmt.Sprintf("request to %s failed", url), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:   classifyStatus(resp.StatusCode),
			Source: c.source,
			Msg:    fmt.Sprintf("%s returned status %d", url, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Source: c.source, Msg: fmt.Sprintf("reading body of %s", url), Err: err}
	}
	return body, nil
}

// GetJSON fetches a URL and decodes the body into v.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Kind: KindRequest, Source: c.source, Msg: fmt.Sprintf("decoding response of %s", url), Err: err}
	}
	return nil
}
