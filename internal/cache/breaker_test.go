package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCache struct {
	getErr  error
	setErr  error
	gets    atomic.Int32
	deletes atomic.Int32
}

func (s *stubCache) Get(context.Context, string) ([]domain.LineItem, error) {
	s.gets.Add(1)
	if s.getErr != nil {
		return nil, s.getErr
	}
	return []domain.LineItem{{ID: "i1"}}, nil
}

func (s *stubCache) Set(context.Context, string, []domain.LineItem) error {
	return s.setErr
}

func (s *stubCache) Delete(context.Context, string) error {
	s.deletes.Add(1)
	return nil
}

func TestBreakerCache_PassesThrough(t *testing.T) {
	next := &stubCache{}
	c := NewBreakerCache(next, BreakerSettings{})

	items, err := c.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NoError(t, c.Set(context.Background(), "s1", items))
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestBreakerCache_MissDoesNotTrip(t *testing.T) {
	next := &stubCache{getErr: ErrCacheMiss}
	c := NewBreakerCache(next, BreakerSettings{FailureThreshold: 2})

	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), "s1")
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
	assert.Equal(t, int32(5), next.gets.Load())
}

func TestBreakerCache_TripsAndFailsFast(t *testing.T) {
	next := &stubCache{getErr: errors.New("connection refused")}
	var transitions atomic.Int32
	c := NewBreakerCache(next, BreakerSettings{
		FailureThreshold: 3,
		OpenTimeout:      time.Hour,
		OnStateChange: func(string, gobreaker.State, gobreaker.State) {
			transitions.Add(1)
		},
	})

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "s1")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())
	assert.Equal(t, int32(1), transitions.Load())

	_, err := c.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), next.gets.Load(), "open breaker must not reach the cache")

	require.NoError(t, c.Delete(context.Background(), "s1"))
	assert.Equal(t, int32(1), next.deletes.Load(), "invalidation bypasses the breaker")
}
