// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claudeServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
}

func TestClaudeBackendComplete(t *testing.T) {
	var got claudeRequest
	var headers http.Header
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Case "},{"type":"tool_use"},{"type":"text","text":"summary"}],"stop_reason":"end_turn"}`)
	})

	b := &ClaudeBackend{APIKey: "sk-test", Model: "default-model", UserAgent: "caseforge-test"}
	resp, err := b.Complete(context.Background(), Request{
		System:      "You are a clinical educator.",
		Prompt:      "Write a summary.",
		Temperature: 0.4,
		MaxTokens:   700,
	})
	require.NoError(t, err)
	assert.Equal(t, "Case summary", resp.Text)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, "sk-test", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))
	assert.Equal(t, "caseforge-test", headers.Get("User-Agent"))
	assert.Equal(t, "default-model", got.Model)
	assert.Equal(t, 700, got.MaxTokens)
	assert.Equal(t, "You are a clinical educator.", got.System)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.4, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestClaudeBackendModelOverride(t *testing.T) {
	var got claudeRequest
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"x"}]}`)
	})

	_, err := (&ClaudeBackend{Model: "a"}).Complete(context.Background(), Request{Model: "b", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "b", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
}

func TestClaudeBackendStatusError(t *testing.T) {
	claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`)
	})

	_, err := (&ClaudeBackend{}).Complete(context.Background(), Request{Prompt: "p"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Body, "rate_limit_error")
	assert.True(t, IsRateLimited(err))
}

func TestClaudeBackendEmptyContent(t *testing.T) {
	claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"content":[]}`)
	})

	_, err := (&ClaudeBackend{}).Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
