package domain

// WebSocket message types from client.
const (
	MsgTypeJoinScope     = "join_scope"
	MsgTypeLeaveScope    = "leave_scope"
	MsgTypeSendMessage   = "send_message"
	MsgTypeEditMessage   = "edit_message"
	MsgTypeDeleteMessage = "delete_message"
	MsgTypePing          = "ping"
)

// WebSocket message types to client. Message creates and updates are
// pushed as Envelope frames, not wrapped in a typed message.
const (
	MsgTypeScopeJoined = "scope_joined"
	MsgTypeScopeLeft   = "scope_left"
	MsgTypeError       = "error"
	MsgTypePong        = "pong"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeScopeNotFound = "SCOPE_NOT_FOUND"
	ErrCodeNotInScope    = "NOT_IN_SCOPE"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseWSMessage is the base structure for all client WebSocket messages.
type BaseWSMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type JoinScopeMessage struct {
	Type      string    `json:"type"`
	ScopeKind ScopeKind `json:"scopeKind"`
	ScopeID   string    `json:"scopeId"`
}

type SendMessageWS struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	FileURL string `json:"fileUrl,omitempty"`
}

type EditMessageWS struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type DeleteMessageWS struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

// Server -> Client messages

type ScopeJoinedMessage struct {
	Type      string    `json:"type"`
	ScopeKind ScopeKind `json:"scopeKind"`
	ScopeID   string    `json:"scopeId"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
