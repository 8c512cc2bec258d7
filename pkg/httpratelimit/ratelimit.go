/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package httpratelimit wraps an http.RoundTripper with GitHub rate
// limit handling. Outbound requests are paced, and a rate limited
// response is retried after waiting out the window the API advertises
// via Retry-After or X-Ratelimit-Reset.
package httpratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/time/rate"
)

// Header names in Go canonical form; GitHub documents them lowercase.
const (
	headerRetryAfter         = "Retry-After"
	headerRateLimitRemaining = "X-Ratelimit-Remaining"
	headerRateLimitReset     = "X-Ratelimit-Reset"
)

const (
	// requestRate paces outbound requests. GitHub asks integrations to
	// space sustained traffic instead of bursting through the quota.
	requestRate  = rate.Limit(2)
	requestBurst = 4

	// maxAttempts bounds how many times a single request is sent.
	maxAttempts = 3

	// defaultRetryWait applies to a 429 that carries no timing headers.
	defaultRetryWait = time.Minute

	// maxRetryWait caps a single pause. A window longer than this
	// surfaces the API error instead of stalling the run.
	maxRetryWait = 5 * time.Minute
)

// Transport retries rate limited GitHub requests after the advertised
// window passes. Requests whose bodies cannot be replayed are not
// retried.
type Transport struct {
	base        http.RoundTripper
	pace        *rate.Limiter
	defaultWait time.Duration
	maxWait     time.Duration
}

// NewTransport wraps base with rate limit handling. A nil base uses
// http.DefaultTransport.
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:        base,
		pace:        rate.NewLimiter(requestRate, requestBurst),
		defaultWait: defaultRetryWait,
		maxWait:     maxRetryWait,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 1; ; attempt++ {
		if err := t.pace.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}

		wait, limited := rateLimitWait(resp, t.defaultWait)
		if !limited || attempt == maxAttempts {
			return resp, nil
		}
		if wait > t.maxWait {
			clog.FromContext(ctx).With("retry_after", wait).
				Warn("GitHub rate limit window exceeds the wait cap, giving up")
			return resp, nil
		}
		// A consumed one-shot body cannot be replayed.
		if req.Body != nil && req.GetBody == nil {
			return resp, nil
		}

		clog.FromContext(ctx).With("retry_after", wait).
			Warn("GitHub rate limit hit, pausing requests")
		if resp.Body != nil {
			resp.Body.Close()
		}
		if err := sleepContext(ctx, wait); err != nil {
			return nil, err
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			req.Body = body
		}
	}
}

// rateLimitWait reports whether resp is a rate limit rejection and how
// long to pause before retrying. A 403 without rate limit headers is
// not one; GitHub uses plain 403 for authorization failures too.
//
// https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api#exceeding-the-rate-limit
func rateLimitWait(resp *http.Response, fallback time.Duration) (time.Duration, bool) {
	if resp.StatusCode != http.StatusForbidden &&
		resp.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}

	if v := resp.Header.Get(headerRetryAfter); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second, true
		}
	}

	if resp.Header.Get(headerRateLimitRemaining) == "0" {
		if v := resp.Header.Get(headerRateLimitReset); v != "" {
			if seconds, err := strconv.ParseInt(v, 10, 64); err == nil {
				return max(time.Until(time.Unix(seconds, 0)), 0), true
			}
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fallback, true
	}
	return 0, false
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
