// Package afterpay reads the public store-directory category listing.
package afterpay

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_ingest/internal/adapters/observability"
)

var (
	ErrNotFound     = errors.New("afterpay: not found")
	ErrUnauthorized = errors.New("afterpay: unauthorized")
	ErrForbidden    = errors.New("afterpay: forbidden")
)

const maxAttempts = 4

type Client struct {
	url string
	hc  *http.Client
	rl  *rate.Limiter
}

// New rate limits calls to rps per second (default 5).
func New(url string, rps int) (*Client, error) {
	if url == "" {
		return nil, errors.New("afterpay: categories URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		url: url,
		hc:  &http.Client{Timeout: 20 * time.Second},
		rl:  rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ListCategories returns the raw `data` items, each {id, attributes:{...}}.
func (c *Client) ListCategories(ctx context.Context) ([]map[string]any, error) {
	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := c.getJSON(ctx, c.url, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// getJSON retries 429, transient 5xx and network errors, honoring Retry-After.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var wait time.Duration
		var retry bool
		retry, wait, err = c.attempt(ctx, url, out)
		if !retry {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		if wait == 0 {
			wait = backoff(attempt)
		}
		if !sleepCtx(ctx, wait) {
			return ctx.Err()
		}
	}
	return err
}

// attempt issues one request. retry reports whether err is transient.
func (c *Client) attempt(ctx context.Context, url string, out any) (retry bool, wait time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "review-ingest/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("afterpay", "categories", 0, time.Since(start))
		if ctx.Err() != nil {
			return false, 0, ctx.Err()
		}
		return true, 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("afterpay", "categories", resp.StatusCode, time.Since(start))

	switch sc := resp.StatusCode; {
	case sc == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, 0, fmt.Errorf("afterpay: decode categories: %w", err)
		}
		return false, 0, nil
	case sc == http.StatusNotFound:
		return false, 0, ErrNotFound
	case sc == http.StatusUnauthorized:
		return false, 0, ErrUnauthorized
	case sc == http.StatusForbidden:
		return false, 0, ErrForbidden
	case sc == http.StatusTooManyRequests || sc == http.StatusInternalServerError ||
		sc == http.StatusBadGateway || sc == http.StatusServiceUnavailable || sc == http.StatusGatewayTimeout:
		return true, retryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("afterpay: remote %d", sc)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, 0, fmt.Errorf("afterpay: bad status %d: %s", sc, strings.TrimSpace(string(snippet)))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter accepts delta-seconds or an HTTP date; 0 when unusable.
func retryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// backoff doubles from 200ms with up to 50% jitter.
func backoff(attempt int) time.Duration {
	base := (200 * time.Millisecond) << attempt
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(float64(base)*float64(b[0])/510.0)
}
