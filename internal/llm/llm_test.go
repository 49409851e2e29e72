package llm

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/caseforge/internal/httputil"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// scriptedCompleter returns its replies in order, repeating the last one.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []reply
	calls   int
}

type reply struct {
	text string
	err  error
}

func (s *scriptedCompleter) Complete(context.Context, Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.replies[min(s.calls, len(s.replies)-1)]
	s.calls++
	return Response{Text: r.text}, r.err
}

var throttled = &StatusError{Code: 429, Body: "rate_limit_error: slow down"}

func TestCallRetriesRateLimitThenSucceeds(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{{err: throttled}, {err: throttled}, {text: "ok"}}}
	text, err := Call(context.Background(), c, Request{Label: "t"}, 3)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, c.calls)
}

func TestCallGivesUpAfterMaxAttempts(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{{err: throttled}}}
	_, err := Call(context.Background(), c, Request{}, 3)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 3, c.calls)
}

func TestCallDefaultAttempts(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{{err: throttled}}}
	_, err := Call(context.Background(), c, Request{}, 0)
	require.Error(t, err)
	assert.Equal(t, 3, c.calls)
}

func TestCallDoesNotRetryOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		r    reply
		want error
	}{
		{"server error", reply{err: &StatusError{Code: 500, Body: "overloaded"}}, nil},
		{"transport", reply{err: errors.New("connection reset")}, nil},
		{"empty text", reply{text: "  \n"}, ErrEmptyCompletion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &scriptedCompleter{replies: []reply{tt.r, {text: "never"}}}
			_, err := Call(context.Background(), c, Request{}, 3)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Equal(t, 1, c.calls)
		})
	}
}

func TestCallRateLimitByMessage(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{{err: errors.New("upstream: Rate limit exceeded")}, {text: "done"}}}
	text, err := Call(context.Background(), c, Request{}, 3)
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, 2, c.calls)
}

// blockingCompleter ignores its context and waits for release.
type blockingCompleter struct{ release chan struct{} }

func (b *blockingCompleter) Complete(context.Context, Request) (Response, error) {
	<-b.release
	return Response{Text: "late"}, nil
}

func TestCallAbandonsInFlightOnDeadline(t *testing.T) {
	b := &blockingCompleter{release: make(chan struct{})}
	defer close(b.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Call(ctx, b, Request{}, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCallCancelledDuringBackoff(t *testing.T) {
	old := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Hour
	defer func() { httputil.RetryBaseDelay = old }()

	ctx, cancel := context.WithCancel(context.Background())
	c := &scriptedCompleter{replies: []reply{{err: throttled}}}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Call(ctx, c, Request{}, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, c.calls)
}

func TestIsRateLimited(t *testing.T) {
	assert.False(t, IsRateLimited(nil))
	assert.True(t, IsRateLimited(throttled))
	assert.True(t, IsRateLimited(&StatusError{Code: 529, Body: "rate_limit"}))
	assert.False(t, IsRateLimited(&StatusError{Code: 503, Body: "unavailable"}))
	assert.Equal(t, 429, throttled.StatusCode())
}
