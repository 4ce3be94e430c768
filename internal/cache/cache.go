// Package cache holds the cart read cache. The database stays the source of
// truth; a cache failure only costs a round trip.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, sessionID string) ([]domain.LineItem, error)
	Set(ctx context.Context, sessionID string, items []domain.LineItem) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

// NoopCache always misses. It is used when no Redis address is configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]domain.LineItem, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, string, []domain.LineItem) error { return nil }

func (NoopCache) Delete(context.Context, string) error { return nil }
