package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/repository"
)

func channelScope(id string) domain.Scope {
	return domain.Scope{Kind: domain.ScopeChannel, ID: id}
}

func seedScope(repo *fakeMessageRepo, scopeID string, n int) {
	// mN is newest.
	msgs := make([]domain.Message, 0, n)
	for i := n; i >= 1; i-- {
		msgs = append(msgs, domain.Message{
			ID:       fmt.Sprintf("m%d", i),
			ScopeID:  scopeID,
			MemberID: "member-1",
			Content:  fmt.Sprintf("message %d", i),
		})
	}
	repo.seed(scopeID, msgs...)
}

func TestHistoryServiceFetchPage(t *testing.T) {
	ctx := context.Background()

	t.Run("serves the newest page for an empty cursor", func(t *testing.T) {
		repo := newFakeMessageRepo()
		seedScope(repo, "chan-1", 5)
		svc := NewHistoryService(repo, newFakeConversationRepo(), newFakeChannelRepo("chan-1"), nil, 0)

		page, err := svc.FetchPage(ctx, channelScope("chan-1"), "member-1", "", 3)
		require.NoError(t, err)

		assert.Len(t, page.Items, 3)
		assert.Equal(t, "m5", page.Items[0].ID)
		assert.Equal(t, "m3", page.NextCursor)
		assert.True(t, page.HasMore)
	})

	t.Run("rejects unknown channels", func(t *testing.T) {
		repo := newFakeMessageRepo()
		svc := NewHistoryService(repo, newFakeConversationRepo(), newFakeChannelRepo(), nil, 0)

		_, err := svc.FetchPage(ctx, channelScope("nope"), "member-1", "", 10)
		assert.ErrorIs(t, err, ErrScopeNotFound)
		assert.Zero(t, repo.listCalls(), "store must not be touched for an unknown scope")
	})

	t.Run("rejects conversations the caller is not part of", func(t *testing.T) {
		convs := newFakeConversationRepo()
		convs.seed(domain.Conversation{ID: "conv-1", MemberOneID: "alice", MemberTwoID: "bob"})
		svc := NewHistoryService(newFakeMessageRepo(), convs, newFakeChannelRepo(), nil, 0)

		scope := domain.Scope{Kind: domain.ScopeConversation, ID: "conv-1"}

		_, err := svc.FetchPage(ctx, scope, "mallory", "", 10)
		assert.ErrorIs(t, err, ErrScopeNotFound)

		_, err = svc.FetchPage(ctx, scope, "alice", "", 10)
		assert.NoError(t, err)
	})

	t.Run("propagates invalid cursors", func(t *testing.T) {
		repo := newFakeMessageRepo()
		seedScope(repo, "chan-1", 2)
		svc := NewHistoryService(repo, newFakeConversationRepo(), newFakeChannelRepo("chan-1"), nil, 0)

		_, err := svc.FetchPage(ctx, channelScope("chan-1"), "member-1", "bogus", 10)
		assert.ErrorIs(t, err, repository.ErrInvalidCursor)
	})
}

func TestHistoryServiceCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("newest page bypasses the cache", func(t *testing.T) {
		repo := newFakeMessageRepo()
		seedScope(repo, "chan-1", 3)
		pc := newFakePageCache()
		svc := NewHistoryService(repo, newFakeConversationRepo(), newFakeChannelRepo("chan-1"), pc, time.Minute)

		_, err := svc.FetchPage(ctx, channelScope("chan-1"), "member-1", "", 2)
		require.NoError(t, err)
		_, err = svc.FetchPage(ctx, channelScope("chan-1"), "member-1", "", 2)
		require.NoError(t, err)

		assert.Equal(t, 2, repo.listCalls(), "empty cursor always hits the store")
	})

	t.Run("cursor pages are written to and served from the cache", func(t *testing.T) {
		repo := newFakeMessageRepo()
		seedScope(repo, "chan-1", 5)
		pc := newFakePageCache()
		svc := NewHistoryService(repo, newFakeConversationRepo(), newFakeChannelRepo("chan-1"), pc, time.Minute)

		first, err := svc.FetchPage(ctx, channelScope("chan-1"), "member-1", "m4", 2)
		require.NoError(t, err)
		assert.Equal(t, "m3", first.Items[0].ID)

		// The cache write is asynchronous.
		select {
		case <-pc.sets:
		case <-time.After(2 * time.Second):
			t.Fatal("page never written to the cache")
		}

		second, err := svc.FetchPage(ctx, channelScope("chan-1"), "member-1", "m4", 2)
		require.NoError(t, err)
		assert.Equal(t, first.Items, second.Items)
		assert.Equal(t, 1, repo.listCalls(), "second fetch must be a cache hit")
	})

	t.Run("works without a cache", func(t *testing.T) {
		repo := newFakeMessageRepo()
		seedScope(repo, "chan-1", 5)
		svc := NewHistoryService(repo, newFakeConversationRepo(), newFakeChannelRepo("chan-1"), nil, 0)

		page, err := svc.FetchPage(ctx, channelScope("chan-1"), "member-1", "m4", 2)
		require.NoError(t, err)
		assert.Equal(t, "m3", page.Items[0].ID)
	})
}
