package hub

import (
	"encoding/json"
	"sync"

	"github.com/ikraamdaanis/discourse/internal/config"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

// Hub tracks connected websocket clients and which scope each one is
// viewing, and fans scope-addressed frames out to them.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	scopes     map[string]map[string]*Client // scopeID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *scopeMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type scopeMessage struct {
	ScopeID string
	Message []byte
	Exclude string // Client ID to exclude
}

// NewHub creates a hub; call Run in its own goroutine.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		scopes:     make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *scopeMessage, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for scopeID, members := range h.scopes {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.scopes, scopeID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if members, ok := h.scopes[msg.ScopeID]; ok {
				for clientID, client := range members {
					if clientID == msg.Exclude {
						continue
					}
					select {
					case client.Send <- msg.Message:
					default:
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) JoinScope(client *Client, scopeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.scopes[scopeID]; !ok {
		h.scopes[scopeID] = make(map[string]*Client)
	}
	h.scopes[scopeID][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldScopeID, scopeID).Msg("client joined scope")
}

func (h *Hub) LeaveScope(client *Client, scopeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.scopes[scopeID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.scopes, scopeID)
		}
	}
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldScopeID, scopeID).Msg("client left scope")
}

// BroadcastToScope sends a marshalled frame to every viewer of a scope.
func (h *Hub) BroadcastToScope(scopeID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.broadcast <- &scopeMessage{
		ScopeID: scopeID,
		Message: data,
		Exclude: exclude,
	}
	return nil
}

// BroadcastRawToScope sends raw bytes to every viewer of a scope.
func (h *Hub) BroadcastRawToScope(scopeID string, data []byte, exclude string) {
	h.broadcast <- &scopeMessage{
		ScopeID: scopeID,
		Message: data,
		Exclude: exclude,
	}
}

func (h *Hub) ScopeClientCount(scopeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.scopes[scopeID]; ok {
		return len(members)
	}
	return 0
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
