package domain

// Envelope is the JSON frame pushed to live subscribers over the
// websocket transport. Key is "<topic>:messages" for creates and
// "<topic>:messages:update" for edits and deletions; deletions are
// plain updates whose Data carries the soft-delete flag.
type Envelope struct {
	Key  string  `json:"key"`
	Data Message `json:"data"`
}

// Envelope key suffixes.
const (
	envelopeCreateSuffix = ":messages"
	envelopeUpdateSuffix = ":messages:update"
)

// CreateKey returns the envelope key for message creates in a scope.
func CreateKey(scopeID string) string {
	return ScopeTopic(scopeID) + envelopeCreateSuffix
}

// UpdateKey returns the envelope key for message updates in a scope.
func UpdateKey(scopeID string) string {
	return ScopeTopic(scopeID) + envelopeUpdateSuffix
}

// NewCreateEnvelope frames a freshly created message for live delivery.
func NewCreateEnvelope(msg Message) *Envelope {
	return &Envelope{Key: CreateKey(msg.ScopeID), Data: msg}
}

// NewUpdateEnvelope frames an edited or soft-deleted message for live
// delivery.
func NewUpdateEnvelope(msg Message) *Envelope {
	return &Envelope{Key: UpdateKey(msg.ScopeID), Data: msg}
}
