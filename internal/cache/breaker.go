package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerCache trips after consecutive Get or Set failures and then fails
// fast until the timeout elapses. Misses count as successes.
type BreakerCache struct {
	next CartCache
	cb   *gobreaker.CircuitBreaker[[]domain.LineItem]
}

type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	OnStateChange    func(name string, from, to gobreaker.State)
}

func NewBreakerCache(next CartCache, s BreakerSettings) *BreakerCache {
	if s.Name == "" {
		s.Name = "cart-cache"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	threshold := s.FailureThreshold

	cb := gobreaker.NewCircuitBreaker[[]domain.LineItem](gobreaker.Settings{
		Name:    s.Name,
		Timeout: s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: s.OnStateChange,
	})
	return &BreakerCache{next: next, cb: cb}
}

func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerCache) Get(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	items, err := b.cb.Execute(func() ([]domain.LineItem, error) {
		return b.next.Get(ctx, sessionID)
	})
	return items, wrapOpen(err)
}

func (b *BreakerCache) Set(ctx context.Context, sessionID string, items []domain.LineItem) error {
	_, err := b.cb.Execute(func() ([]domain.LineItem, error) {
		return nil, b.next.Set(ctx, sessionID, items)
	})
	return wrapOpen(err)
}

// Delete bypasses the breaker. A skipped invalidation could serve a stale cart
// once the breaker closes again.
func (b *BreakerCache) Delete(ctx context.Context, sessionID string) error {
	return b.next.Delete(ctx, sessionID)
}

func wrapOpen(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("cart cache unavailable: %w", err)
	}
	return err
}
