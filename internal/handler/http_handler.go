package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ikraamdaanis/discourse/internal/config"
	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/repository"
	"github.com/ikraamdaanis/discourse/internal/service"
	"github.com/ikraamdaanis/discourse/pkg/response"
)

type HTTPHandler struct {
	history service.HistoryService
	chat    service.ChatService
	auth    Authenticator
	cfg     config.HistoryConfig
}

func NewHTTPHandler(history service.HistoryService, chat service.ChatService, auth Authenticator, cfg config.HistoryConfig) *HTTPHandler {
	return &HTTPHandler{
		history: history,
		chat:    chat,
		auth:    auth,
		cfg:     cfg,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/messages", h.GetChannelMessages)
		api.GET("/direct-messages", h.GetDirectMessages)
		api.POST("/messages", h.SendMessage)
		api.PATCH("/messages/:message_id", h.EditMessage)
		api.DELETE("/messages/:message_id", h.DeleteMessage)
		api.GET("/conversations/:member_id", h.OpenConversation)
	}

	r.GET("/health", h.HealthCheck)
}

// pagePayload is the wire shape of a history page. NextCursor is null on
// the terminal page so clients can stop paging without inspecting item
// counts.
type pagePayload struct {
	Items      []domain.Message `json:"items"`
	NextCursor *string          `json:"nextCursor"`
}

func newPagePayload(page *domain.Page) pagePayload {
	p := pagePayload{Items: page.Items}
	if page.HasMore {
		cursor := page.NextCursor
		p.NextCursor = &cursor
	}
	return p
}

func (h *HTTPHandler) GetChannelMessages(c *gin.Context) {
	h.getMessages(c, domain.ScopeChannel, "channelId")
}

func (h *HTTPHandler) GetDirectMessages(c *gin.Context) {
	h.getMessages(c, domain.ScopeConversation, "conversationId")
}

func (h *HTTPHandler) getMessages(c *gin.Context, kind domain.ScopeKind, idParam string) {
	memberID, err := h.auth.MemberID(c.Request)
	if err != nil {
		response.Unauthorized(c, "member identity required")
		return
	}

	scopeID := c.Query(idParam)
	if scopeID == "" {
		response.BadRequest(c, idParam+" is required")
		return
	}

	cursor := c.Query("cursor")

	limit := h.cfg.PageSize
	if limitStr := c.Query("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsedLimit
		if limit > h.cfg.MaxPageSize {
			limit = h.cfg.MaxPageSize
		}
	}

	scope := domain.Scope{Kind: kind, ID: scopeID}
	page, err := h.history.FetchPage(c.Request.Context(), scope, memberID, cursor, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, newPagePayload(page))
}

type sendMessageRequest struct {
	ScopeKind domain.ScopeKind `json:"scopeKind" binding:"required"`
	ScopeID   string           `json:"scopeId" binding:"required"`
	Content   string           `json:"content"`
	FileURL   string           `json:"fileUrl"`
}

func (h *HTTPHandler) SendMessage(c *gin.Context) {
	memberID, err := h.auth.MemberID(c.Request)
	if err != nil {
		response.Unauthorized(c, "member identity required")
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	scope := domain.Scope{Kind: req.ScopeKind, ID: req.ScopeID}
	msg, err := h.chat.SendMessage(c.Request.Context(), scope, memberID, req.Content, req.FileURL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Created(c, msg)
}

type editMessageRequest struct {
	ScopeKind domain.ScopeKind `json:"scopeKind" binding:"required"`
	ScopeID   string           `json:"scopeId" binding:"required"`
	Content   string           `json:"content"`
}

func (h *HTTPHandler) EditMessage(c *gin.Context) {
	memberID, err := h.auth.MemberID(c.Request)
	if err != nil {
		response.Unauthorized(c, "member identity required")
		return
	}

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	scope := domain.Scope{Kind: req.ScopeKind, ID: req.ScopeID}
	msg, err := h.chat.EditMessage(c.Request.Context(), scope, memberID, c.Param("message_id"), req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, msg)
}

func (h *HTTPHandler) DeleteMessage(c *gin.Context) {
	memberID, err := h.auth.MemberID(c.Request)
	if err != nil {
		response.Unauthorized(c, "member identity required")
		return
	}

	scopeKind := domain.ScopeKind(c.Query("scopeKind"))
	scopeID := c.Query("scopeId")
	if scopeID == "" || (scopeKind != domain.ScopeChannel && scopeKind != domain.ScopeConversation) {
		response.BadRequest(c, "scopeKind and scopeId are required")
		return
	}

	scope := domain.Scope{Kind: scopeKind, ID: scopeID}
	msg, err := h.chat.DeleteMessage(c.Request.Context(), scope, memberID, c.Param("message_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, msg)
}

// OpenConversation resolves the direct conversation between the caller
// and the target member, creating it on first contact.
func (h *HTTPHandler) OpenConversation(c *gin.Context) {
	memberID, err := h.auth.MemberID(c.Request)
	if err != nil {
		response.Unauthorized(c, "member identity required")
		return
	}

	targetID := c.Param("member_id")
	if targetID == "" || targetID == memberID {
		response.BadRequest(c, "a distinct target member_id is required")
		return
	}

	conv, err := h.chat.OpenConversation(c.Request.Context(), memberID, targetID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, conv)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScopeNotFound):
		response.NotFound(c, "scope not found")
	case errors.Is(err, repository.ErrMessageNotFound):
		response.NotFound(c, "message not found")
	case errors.Is(err, repository.ErrInvalidCursor):
		response.BadRequest(c, "invalid cursor")
	case errors.Is(err, service.ErrEmptyMessage):
		response.BadRequest(c, "message needs content or an attachment")
	case errors.Is(err, service.ErrNotAuthor):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "only the author can modify a message")
	default:
		response.InternalError(c, "internal error")
	}
}
