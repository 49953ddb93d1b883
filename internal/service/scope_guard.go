package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/repository"
)

// scopeGuard settles whether a caller may touch a scope. Channel
// membership is the identity provider's problem; here a channel only has
// to exist. Conversations are stricter: the caller must be one of the
// two participants.
type scopeGuard struct {
	conversations repository.ConversationRepository
	channels      repository.ChannelRepository
}

func (g *scopeGuard) authorize(ctx context.Context, scope domain.Scope, callerID string) error {
	switch scope.Kind {
	case domain.ScopeChannel:
		ok, err := g.channels.Exists(ctx, scope.ID)
		if err != nil {
			return fmt.Errorf("check channel: %w", err)
		}
		if !ok {
			return ErrScopeNotFound
		}
		return nil

	case domain.ScopeConversation:
		conv, err := g.conversations.GetByID(ctx, scope.ID)
		if err != nil {
			if errors.Is(err, repository.ErrConversationNotFound) {
				return ErrScopeNotFound
			}
			return fmt.Errorf("check conversation: %w", err)
		}
		if !conv.Involves(callerID) {
			return ErrScopeNotFound
		}
		return nil

	default:
		return ErrScopeNotFound
	}
}
