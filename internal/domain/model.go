package domain

import "time"

// MessageModel is the GORM model for the messages table. The composite
// index on (scope_id, created_at, id) backs keyset pagination.
type MessageModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	ScopeID   string    `gorm:"column:scope_id;type:varchar(36);not null;index:idx_messages_scope_created,priority:1"`
	MemberID  string    `gorm:"column:member_id;type:varchar(36);not null"`
	Content   string    `gorm:"type:text"`
	FileURL   string    `gorm:"column:file_url;type:text"`
	Deleted   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_messages_scope_created,priority:2"`
	UpdatedAt time.Time
}

func (MessageModel) TableName() string { return "messages" }

// Message converts the row to its domain representation.
func (m *MessageModel) Message() Message {
	return Message{
		ID:        m.ID,
		ScopeID:   m.ScopeID,
		MemberID:  m.MemberID,
		Content:   m.Content,
		FileURL:   m.FileURL,
		Deleted:   m.Deleted,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ConversationModel is the GORM model for the conversations table.
// PairKey is the canonical "<low>:<high>" ordering of the two member
// ids; its unique index is what makes lazy creation idempotent when
// both participants resolve the conversation at once, regardless of
// argument order.
type ConversationModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	MemberOneID string    `gorm:"column:member_one_id;type:varchar(36);not null"`
	MemberTwoID string    `gorm:"column:member_two_id;type:varchar(36);not null"`
	PairKey     string    `gorm:"column:pair_key;type:varchar(80);not null;uniqueIndex"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (ConversationModel) TableName() string { return "conversations" }

// Conversation converts the row to its domain representation.
func (m *ConversationModel) Conversation() Conversation {
	return Conversation{
		ID:          m.ID,
		MemberOneID: m.MemberOneID,
		MemberTwoID: m.MemberTwoID,
		CreatedAt:   m.CreatedAt,
	}
}

// ChannelModel is the GORM model for the channels table. Channel
// membership is settled by the external identity layer; the row only
// has to exist for the scope to be servable.
type ChannelModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Name      string    `gorm:"type:varchar(120);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ChannelModel) TableName() string { return "channels" }
