package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ikraamdaanis/discourse/internal/config"
	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/hub"
	"github.com/ikraamdaanis/discourse/internal/repository"
	"github.com/ikraamdaanis/discourse/internal/service"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub    *hub.Hub
	bridge *hub.Bridge
	chat   service.ChatService
	auth   Authenticator
	wsCfg  config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, bridge *hub.Bridge, chat service.ChatService, auth Authenticator, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:    h,
		bridge: bridge,
		chat:   chat,
		auth:   auth,
		wsCfg:  wsCfg,
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	memberID, err := h.auth.MemberID(r)
	if err != nil {
		http.Error(w, "member identity required", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), memberID, h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()
	go h.readLoop(client)
}

// readLoop wraps the client read pump so the scope subscription is
// released even when the socket drops without a leave_scope.
func (h *WSHandler) readLoop(client *hub.Client) {
	client.ReadPump(h.handleMessage)

	if scope := client.Scope(); scope != nil {
		client.SetScope(nil)
		h.bridge.Release(scope.ID)
	}
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseWSMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeJoinScope:
		var msg domain.JoinScopeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid join_scope message"))
			return
		}
		h.handleJoinScope(ctx, client, msg)

	case domain.MsgTypeLeaveScope:
		h.handleLeaveScope(client)

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageWS
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid send_message"))
			return
		}
		scope, ok := h.requireScope(client)
		if !ok {
			return
		}
		if _, err := h.chat.SendMessage(ctx, *scope, client.MemberID, msg.Content, msg.FileURL); err != nil {
			h.sendError(client, err)
		}

	case domain.MsgTypeEditMessage:
		var msg domain.EditMessageWS
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid edit_message"))
			return
		}
		scope, ok := h.requireScope(client)
		if !ok {
			return
		}
		if _, err := h.chat.EditMessage(ctx, *scope, client.MemberID, msg.MessageID, msg.Content); err != nil {
			h.sendError(client, err)
		}

	case domain.MsgTypeDeleteMessage:
		var msg domain.DeleteMessageWS
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid delete_message"))
			return
		}
		scope, ok := h.requireScope(client)
		if !ok {
			return
		}
		if _, err := h.chat.DeleteMessage(ctx, *scope, client.MemberID, msg.MessageID); err != nil {
			h.sendError(client, err)
		}

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}

func (h *WSHandler) handleJoinScope(ctx context.Context, client *hub.Client, msg domain.JoinScopeMessage) {
	if msg.ScopeID == "" || (msg.ScopeKind != domain.ScopeChannel && msg.ScopeKind != domain.ScopeConversation) {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "scopeKind and scopeId are required"))
		return
	}

	scope := domain.Scope{Kind: msg.ScopeKind, ID: msg.ScopeID}
	if err := h.chat.AuthorizeScope(ctx, scope, client.MemberID); err != nil {
		h.sendError(client, err)
		return
	}

	// One scope per connection: joining a new scope leaves the old one.
	h.handleLeaveScope(client)

	if err := h.bridge.Acquire(ctx, scope.ID); err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldScopeID, scope.ID).Msg("failed to subscribe scope")
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "failed to join scope"))
		return
	}

	h.hub.JoinScope(client, scope.ID)
	client.SetScope(&scope)

	client.SendMessage(domain.ScopeJoinedMessage{
		Type:      domain.MsgTypeScopeJoined,
		ScopeKind: scope.Kind,
		ScopeID:   scope.ID,
	})
}

func (h *WSHandler) handleLeaveScope(client *hub.Client) {
	scope := client.Scope()
	if scope == nil {
		return
	}

	client.SetScope(nil)
	h.hub.LeaveScope(client, scope.ID)
	h.bridge.Release(scope.ID)

	client.SendMessage(map[string]string{"type": domain.MsgTypeScopeLeft})
}

func (h *WSHandler) requireScope(client *hub.Client) (*domain.Scope, bool) {
	scope := client.Scope()
	if scope == nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotInScope, "Join a scope first"))
		return nil, false
	}
	return scope, true
}

func (h *WSHandler) sendError(client *hub.Client, err error) {
	switch {
	case errors.Is(err, service.ErrScopeNotFound):
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeScopeNotFound, "Scope not found"))
	case errors.Is(err, repository.ErrMessageNotFound):
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeScopeNotFound, "Message not found"))
	case errors.Is(err, service.ErrNotAuthor):
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeForbidden, "Only the author can modify a message"))
	case errors.Is(err, service.ErrEmptyMessage):
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Message needs content or an attachment"))
	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "Internal error"))
	}
}
