// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/pdiddy/caseforge/pkg/types"
)

// ResilientBackend wraps a Backend with a circuit breaker and an LRU cache
// of successful responses. Once the breaker opens, searches fail fast and
// the Searcher falls back to placeholders without waiting on timeouts.
type ResilientBackend struct {
	next    Backend
	breaker *gobreaker.CircuitBreaker
	cache   *lru.Cache[string, []types.SearchRecord]
}

// NewResilientBackend wraps next. cacheSize <= 0 selects 128 entries.
func NewResilientBackend(next Backend, cacheSize int, log *zap.Logger) (*ResilientBackend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, []types.SearchRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating search cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("search circuit breaker state change",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ResilientBackend{next: next, breaker: breaker, cache: cache}, nil
}

// Name returns the wrapped backend's name.
func (b *ResilientBackend) Name() string { return b.next.Name() }

// Search serves repeated queries from the cache and routes the rest through
// the circuit breaker.
func (b *ResilientBackend) Search(ctx context.Context, query Query, maxResults int) ([]types.SearchRecord, error) {
	key := query.Boolean() + "|" + strconv.Itoa(maxResults)
	if records, ok := b.cache.Get(key); ok {
		return records, nil
	}

	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Search(ctx, query, maxResults)
	})
	if err != nil {
		return nil, err
	}
	records, _ := out.([]types.SearchRecord)
	if len(records) > 0 {
		b.cache.Add(key, records)
	}
	return records, nil
}

// State reports the breaker state, for diagnostics.
func (b *ResilientBackend) State() gobreaker.State {
	return b.breaker.State()
}
