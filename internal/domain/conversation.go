package domain

import "time"

// Conversation is a direct-message scope between two members. For any
// unordered member pair at most one conversation exists; it is created
// lazily on first contact and never deleted while either member exists.
type Conversation struct {
	ID          string    `json:"id"`
	MemberOneID string    `json:"memberOneId"`
	MemberTwoID string    `json:"memberTwoId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Involves reports whether memberID is one of the two participants.
func (c *Conversation) Involves(memberID string) bool {
	return c.MemberOneID == memberID || c.MemberTwoID == memberID
}
