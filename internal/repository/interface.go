package repository

import (
	"context"
	"errors"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrChannelNotFound      = errors.New("channel not found")
	ErrInvalidCursor        = errors.New("invalid cursor")

	// ErrConversationExists is returned by ConversationRepository.Create
	// when the unordered member pair already has a row, typically because
	// a racing create won.
	ErrConversationExists = errors.New("conversation already exists")
)

// MessageRepository serves and mutates persisted messages.
type MessageRepository interface {
	// ListPage returns up to limit messages of the scope strictly older
	// than the cursor position, newest-first. An empty cursor requests
	// the newest page. nextCursor identifies the oldest returned item
	// and is empty when hasMore is false.
	ListPage(ctx context.Context, scopeID, cursor string, limit int) (messages []domain.Message, nextCursor string, hasMore bool, err error)

	GetByID(ctx context.Context, id string) (*domain.Message, error)
	Create(ctx context.Context, msg *domain.Message) error

	// UpdateContent edits the message body and bumps the last-modified
	// timestamp. Edits never change the message's history position.
	UpdateContent(ctx context.Context, id, content string) (*domain.Message, error)

	// SoftDelete clears content and attachment but keeps the row and its
	// timestamps, so clients can render a tombstone.
	SoftDelete(ctx context.Context, id string) (*domain.Message, error)
}

// ConversationRepository stores direct-message conversations.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)

	// FindByMembers looks up a conversation with exactly this member
	// order. Callers probe both orders.
	FindByMembers(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error)

	// Create inserts a conversation for the pair as given, returning
	// ErrConversationExists if the unordered pair already has a row.
	Create(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error)
}

// ChannelRepository stores channels. Membership checks live with the
// external identity layer; the store only answers existence.
type ChannelRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, id, name string) error
}
