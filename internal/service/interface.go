package service

import (
	"context"
	"errors"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

var (
	// ErrScopeNotFound is returned when a channel or conversation does
	// not exist, or the caller is not a participant. The store rejects
	// rather than returning an empty page.
	ErrScopeNotFound = errors.New("scope not found")

	// ErrNotAuthor is returned when a member tries to modify a message
	// they did not write.
	ErrNotAuthor = errors.New("not the message author")

	// ErrEmptyMessage is returned when a send carries neither body text
	// nor an attachment.
	ErrEmptyMessage = errors.New("message has no content")
)

// HistoryService serves reverse-chronological history pages by cursor.
type HistoryService interface {
	// FetchPage returns the page of messages strictly older than the
	// cursor position, or the newest page when the cursor is empty.
	FetchPage(ctx context.Context, scope domain.Scope, callerID, cursor string, limit int) (*domain.Page, error)
}

// ChatService owns message writes and their live fan-out.
type ChatService interface {
	SendMessage(ctx context.Context, scope domain.Scope, memberID, content, fileURL string) (*domain.Message, error)
	EditMessage(ctx context.Context, scope domain.Scope, memberID, messageID, content string) (*domain.Message, error)

	// DeleteMessage soft-deletes: the row survives as a tombstone and the
	// change is pushed as an update event with the deleted flag set.
	DeleteMessage(ctx context.Context, scope domain.Scope, memberID, messageID string) (*domain.Message, error)

	// OpenConversation resolves (creating if absent) the single direct
	// conversation between two members.
	OpenConversation(ctx context.Context, memberA, memberB string) (*domain.Conversation, error)

	// AuthorizeScope reports whether the member may read and write the
	// scope. Returns ErrScopeNotFound for missing scopes and for
	// conversations the member is not part of.
	AuthorizeScope(ctx context.Context, scope domain.Scope, memberID string) error
}
