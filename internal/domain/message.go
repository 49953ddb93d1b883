package domain

import "time"

// Message is a single chat message in a channel or direct conversation.
// Content may be empty when FileURL is set (attachment-only messages).
// A deleted message keeps its identifier and timestamps but has its
// content and attachment cleared, so clients can render a tombstone.
type Message struct {
	ID        string    `json:"id"`
	ScopeID   string    `json:"scopeId"`
	MemberID  string    `json:"memberId"`
	Content   string    `json:"content"`
	FileURL   string    `json:"fileUrl,omitempty"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is one reverse-chronological slice of a scope's history.
// Items are ordered newest-first. NextCursor points at the page of
// strictly older messages; it is empty and HasMore false once the
// oldest page has been served.
type Page struct {
	Items      []Message `json:"items"`
	NextCursor string    `json:"nextCursor"`
	HasMore    bool      `json:"hasMore"`
}
