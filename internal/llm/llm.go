// Package llm wraps the text-completion service that writes every
// narrative part of a case document. Callers depend on the Completer
// interface so tests can script responses without a network.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/caseforge/internal/httputil"
)

// ErrEmptyCompletion is returned when the service answers without text.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer produces one completion for one prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is a single completion call.
type Request struct {
	// System is the role instruction sent ahead of the prompt.
	System string
	Prompt string

	Model       string
	Temperature float64
	MaxTokens   int

	// Label names the call (e.g. "phase1.entities") for logging and tests.
	Label string
}

// Response carries the completion text.
type Response struct {
	Text       string
	StopReason string
}

// StatusError is a non-200 answer from the completion service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Claude API returned %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

// IsRateLimited reports whether err signals throttling, by status 429 or by
// a "rate limit" message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	status := 0
	var se *StatusError
	if errors.As(err, &se) {
		status = se.Code
	}
	return httputil.IsRateLimited(status, err.Error())
}

// Call runs one completion with the retry policy shared by every field:
// at most maxAttempts calls, retrying only rate-limited failures after
// httputil.Backoff(attempt). Other failures and empty completions return at
// once. When ctx ends the in-flight call is abandoned and ctx.Err() is
// returned without waiting for it.
func Call(ctx context.Context, c Completer, req Request, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = httputil.DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt > 0 {
			if err := httputil.Sleep(ctx, httputil.Backoff(attempt-1)); err != nil {
				return "", err
			}
		}

		text, err := completeOnce(ctx, c, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		if !IsRateLimited(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

type outcome struct {
	text string
	err  error
}

func completeOnce(ctx context.Context, c Completer, req Request) (string, error) {
	done := make(chan outcome, 1)
	go func() {
		resp, err := c.Complete(ctx, req)
		done <- outcome{text: resp.Text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-done:
		if o.err != nil {
			return "", o.err
		}
		if strings.TrimSpace(o.text) == "" {
			return "", ErrEmptyCompletion
		}
		return o.text, nil
	}
}
