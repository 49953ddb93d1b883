package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ikraamdaanis/discourse/internal/cache"
	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/repository"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

type historyServiceImpl struct {
	messages repository.MessageRepository
	guard    scopeGuard
	cache    cache.PageCache
	cacheTTL time.Duration
	sf       singleflight.Group
}

// NewHistoryService creates the paginated history store. pageCache may
// be nil, in which case every page is served from the repository.
func NewHistoryService(
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	channels repository.ChannelRepository,
	pageCache cache.PageCache,
	cacheTTL time.Duration,
) HistoryService {
	return &historyServiceImpl{
		messages: messages,
		guard:    scopeGuard{conversations: conversations, channels: channels},
		cache:    pageCache,
		cacheTTL: cacheTTL,
	}
}

func (s *historyServiceImpl) FetchPage(ctx context.Context, scope domain.Scope, callerID, cursor string, limit int) (*domain.Page, error) {
	if err := s.guard.authorize(ctx, scope, callerID); err != nil {
		return nil, err
	}

	// Always fetch the newest page directly so fresh sends are visible
	// immediately; only cursor pages are immutable enough to cache.
	if cursor == "" || s.cache == nil {
		return s.fetchFromStore(ctx, scope.ID, cursor, limit)
	}

	cacheKey := s.cache.BuildKey(scope.ID, cursor, limit)

	// Singleflight collapses a stampede of identical page fetches.
	result, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		return s.fetchWithCache(ctx, scope.ID, cursor, limit, cacheKey)
	})
	if err != nil {
		return nil, err
	}

	page, ok := result.(*domain.Page)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return page, nil
}

func (s *historyServiceImpl) fetchWithCache(ctx context.Context, scopeID, cursor string, limit int, cacheKey string) (*domain.Page, error) {
	cached, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("page cache get error")
	}

	page, err := s.fetchFromStore(ctx, scopeID, cursor, limit)
	if err != nil {
		return nil, err
	}

	// Store in cache (async to avoid blocking the response).
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(cacheCtx, cacheKey, page, s.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("page cache set error")
		}
	}()

	return page, nil
}

func (s *historyServiceImpl) fetchFromStore(ctx context.Context, scopeID, cursor string, limit int) (*domain.Page, error) {
	messages, nextCursor, hasMore, err := s.messages.ListPage(ctx, scopeID, cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return &domain.Page{
		Items:      messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
