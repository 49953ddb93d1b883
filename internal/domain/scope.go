package domain

import "fmt"

// ScopeKind distinguishes the two kinds of message scopes.
type ScopeKind string

const (
	ScopeChannel      ScopeKind = "channel"
	ScopeConversation ScopeKind = "conversation"
)

// Scope identifies a channel or a direct conversation, the unit of
// message ownership and topic partitioning.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

// Topic returns the event-bus topic for a scope. Topics are derived,
// never persisted.
func (s Scope) Topic() string {
	return ScopeTopic(s.ID)
}

// ScopeTopic derives the event-bus topic for a scope identifier.
func ScopeTopic(scopeID string) string {
	return fmt.Sprintf("chat:%s", scopeID)
}
