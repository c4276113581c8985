// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP plumbing shared by the fetcher and the
// search client: client construction, header randomization, proxy rotation,
// context-aware pacing, and 429 backoff.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryBaseDelay is the first backoff after an HTTP 429 without a usable
// Retry-After header. Tests override this to avoid real sleeps.
var RetryBaseDelay = 60 * time.Second

const (
	defaultMaxRetries    = 5
	defaultMaxRetryDelay = 5 * time.Minute
	maxRetryAfter        = 24 * time.Hour
)

// RetryPolicy configures DoWithRetry.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt (default 5).
	MaxRetries int

	// MaxDelay caps every wait, including one requested by Retry-After
	// (default 5m).
	MaxDelay time.Duration

	// Headers, when set, stamps a fresh identity on every attempt so a
	// retried request does not repeat the one that was throttled.
	Headers *HeaderPool
}

// DoWithRetry sends req and retries on HTTP 429 (Too Many Requests). Each
// attempt is a clone of req; with p.Headers set it carries new identifying
// headers. The wait before a retry is the server's Retry-After when present,
// otherwise RetryBaseDelay doubled per attempt, capped at p.MaxDelay.
//
// req must have no body or a replayable one. A throttled response body is
// drained before the wait. Cancelling ctx during a wait returns ctx.Err().
// When retries run out the last 429 response is returned for the caller to
// inspect.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, p RetryPolicy) (*http.Response, error) {
	if p.MaxRetries <= 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxRetryDelay
	}

	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if p.Headers != nil {
			p.Headers.Apply(r)
		}
		resp, err := client.Do(r)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= p.MaxRetries {
			return resp, nil
		}

		wait, ok := RetryAfter(resp.Header, time.Now())
		if !ok {
			wait = Backoff(RetryBaseDelay, attempt, p.MaxDelay)
		}
		wait = min(wait, p.MaxDelay)

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// Backoff returns base·2^attempt, saturating at ceiling instead of
// overflowing.
func Backoff(base time.Duration, attempt int, ceiling time.Duration) time.Duration {
	d := base
	for range attempt {
		if d >= ceiling/2 {
			return ceiling
		}
		d *= 2
	}
	return min(d, ceiling)
}

// RetryAfter reads a Retry-After header given either as delay seconds or
// as an HTTP date. Dates in the past yield zero; values beyond a day are
// clamped to a day.
func RetryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int(maxRetryAfter/time.Second) {
			return maxRetryAfter, true
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	return min(max(at.Sub(now), 0), maxRetryAfter), true
}
