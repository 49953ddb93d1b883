package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

// ErrCacheMiss is returned when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// PageCache stores served history pages. Only pages behind a cursor are
// cached; the newest page always comes from the store so fresh sends are
// never masked.
type PageCache interface {
	Get(ctx context.Context, key string) (*domain.Page, error)
	Set(ctx context.Context, key string, page *domain.Page, ttl time.Duration) error
	BuildKey(scopeID, cursor string, limit int) string
	Close() error
}
