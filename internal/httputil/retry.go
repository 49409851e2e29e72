// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the rate-limit detection and backoff policy
// shared by every client that talks to an external collaborator.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// RetryBaseDelay is the first backoff interval; attempt n waits
// RetryBaseDelay * 2^n. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// DefaultMaxAttempts caps the number of calls, including the first, made
// for one request.
const DefaultMaxAttempts = 3

// Backoff returns the wait before retrying after the given zero-based attempt.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return RetryBaseDelay << uint(attempt)
}

// IsRateLimited reports whether a failed call was throttled by the remote
// service, either by HTTP 429 or by a "rate limit" message.
func IsRateLimited(status int, message string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	m := strings.ToLower(message)
	return strings.Contains(m, "rate limit") || strings.Contains(m, "rate_limit")
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 with
// exponential backoff, making at most maxAttempts calls (DefaultMaxAttempts
// when maxAttempts <= 0). Each throttled response body is drained and
// closed before sleeping. If ctx is cancelled during a wait the function
// returns ctx.Err(). After the last attempt the 429 response is returned so
// the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt+1 >= maxAttempts {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := Sleep(ctx, Backoff(attempt)); err != nil {
			return nil, err
		}
	}
}
