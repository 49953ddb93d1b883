package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldMemberID = "member_id"

	// Chat
	FieldScopeID   = "scope_id"
	FieldMessageID = "message_id"
	FieldTopic     = "topic"
	FieldClientID  = "client_id"

	// Service
	FieldService = "service"
)
