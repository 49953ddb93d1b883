package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ikraamdaanis/discourse/internal/conversation"
	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/pubsub"
	"github.com/ikraamdaanis/discourse/internal/repository"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

type chatServiceImpl struct {
	messages repository.MessageRepository
	resolver *conversation.Resolver
	guard    scopeGuard
	bus      pubsub.Publisher
}

// NewChatService creates the message write path: authorize, persist,
// then publish to the scope's topic for live subscribers.
func NewChatService(
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	channels repository.ChannelRepository,
	resolver *conversation.Resolver,
	bus pubsub.Publisher,
) ChatService {
	return &chatServiceImpl{
		messages: messages,
		resolver: resolver,
		guard:    scopeGuard{conversations: conversations, channels: channels},
		bus:      bus,
	}
}

func (s *chatServiceImpl) SendMessage(ctx context.Context, scope domain.Scope, memberID, content, fileURL string) (*domain.Message, error) {
	if content == "" && fileURL == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.guard.authorize(ctx, scope, memberID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:       uuid.New().String(),
		ScopeID:  scope.ID,
		MemberID: memberID,
		Content:  content,
		FileURL:  fileURL,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	s.publish(ctx, pubsub.EventMessageCreated, msg)
	return msg, nil
}

func (s *chatServiceImpl) EditMessage(ctx context.Context, scope domain.Scope, memberID, messageID, content string) (*domain.Message, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.guard.authorize(ctx, scope, memberID); err != nil {
		return nil, err
	}
	if err := s.ownedLiveMessage(ctx, scope, memberID, messageID); err != nil {
		return nil, err
	}

	msg, err := s.messages.UpdateContent(ctx, messageID, content)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	s.publish(ctx, pubsub.EventMessageUpdated, msg)
	return msg, nil
}

func (s *chatServiceImpl) DeleteMessage(ctx context.Context, scope domain.Scope, memberID, messageID string) (*domain.Message, error) {
	if err := s.guard.authorize(ctx, scope, memberID); err != nil {
		return nil, err
	}
	if err := s.ownedLiveMessage(ctx, scope, memberID, messageID); err != nil {
		return nil, err
	}

	msg, err := s.messages.SoftDelete(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}

	// Deletions ride the update path: subscribers replace the message in
	// place with its tombstone.
	s.publish(ctx, pubsub.EventMessageUpdated, msg)
	return msg, nil
}

func (s *chatServiceImpl) AuthorizeScope(ctx context.Context, scope domain.Scope, memberID string) error {
	return s.guard.authorize(ctx, scope, memberID)
}

func (s *chatServiceImpl) OpenConversation(ctx context.Context, memberA, memberB string) (*domain.Conversation, error) {
	return s.resolver.Resolve(ctx, memberA, memberB)
}

// ownedLiveMessage checks the message exists in this scope, is not a
// tombstone, and belongs to the caller.
func (s *chatServiceImpl) ownedLiveMessage(ctx context.Context, scope domain.Scope, memberID, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return repository.ErrMessageNotFound
		}
		return fmt.Errorf("load message: %w", err)
	}
	if msg.ScopeID != scope.ID || msg.Deleted {
		return repository.ErrMessageNotFound
	}
	if msg.MemberID != memberID {
		return ErrNotAuthor
	}
	return nil
}

// publish pushes the change to live subscribers. The message is already
// durable at this point; a publish failure is logged and absorbed, since
// viewers pick the message up through pagination anyway.
func (s *chatServiceImpl) publish(ctx context.Context, eventType string, msg *domain.Message) {
	event, err := pubsub.NewEvent(eventType, msg.ScopeID, msg)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ScopeTopic(msg.ScopeID), event); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldScopeID, msg.ScopeID).
			Msg("failed to publish message event")
	}
}
