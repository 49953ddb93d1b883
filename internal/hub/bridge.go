package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/pubsub"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

// Bridge links the event bus to the hub: while at least one viewer has
// a scope open, the bridge holds one bus subscription for it and fans
// incoming events out as wire envelopes. Subscriptions are refcounted
// so a scope's topic is released as soon as its last viewer leaves.
type Bridge struct {
	bus pubsub.Subscriber
	hub *Hub

	mu     sync.Mutex
	scopes map[string]*bridgeScope
}

type bridgeScope struct {
	sub  pubsub.Subscription
	refs int
	done chan struct{}
}

// NewBridge creates a bridge between the bus and the hub.
func NewBridge(bus pubsub.Subscriber, h *Hub) *Bridge {
	return &Bridge{
		bus:    bus,
		hub:    h,
		scopes: make(map[string]*bridgeScope),
	}
}

// Acquire takes a reference on the scope's topic subscription, creating
// it if this is the first viewer.
func (b *Bridge) Acquire(ctx context.Context, scopeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.scopes[scopeID]; ok {
		s.refs++
		return nil
	}

	sub, err := b.bus.Subscribe(ctx, domain.ScopeTopic(scopeID))
	if err != nil {
		return err
	}

	s := &bridgeScope{sub: sub, refs: 1, done: make(chan struct{})}
	b.scopes[scopeID] = s
	go b.forward(scopeID, s)
	return nil
}

// Release drops a reference; the last release closes the subscription
// before returning.
func (b *Bridge) Release(scopeID string) {
	b.mu.Lock()
	s, ok := b.scopes[scopeID]
	if !ok {
		b.mu.Unlock()
		return
	}
	s.refs--
	if s.refs > 0 {
		b.mu.Unlock()
		return
	}
	delete(b.scopes, scopeID)
	b.mu.Unlock()

	s.sub.Close()
	<-s.done
}

// Close releases every open scope subscription.
func (b *Bridge) Close() {
	b.mu.Lock()
	scopes := b.scopes
	b.scopes = make(map[string]*bridgeScope)
	b.mu.Unlock()

	for _, s := range scopes {
		s.sub.Close()
		<-s.done
	}
}

func (b *Bridge) forward(scopeID string, s *bridgeScope) {
	defer close(s.done)

	for ev := range s.sub.Events() {
		var msg domain.Message
		if err := ev.UnmarshalPayload(&msg); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldScopeID, scopeID).Msg("dropping malformed event payload")
			continue
		}

		var env *domain.Envelope
		switch ev.Type {
		case pubsub.EventMessageCreated:
			env = domain.NewCreateEnvelope(msg)
		case pubsub.EventMessageUpdated:
			env = domain.NewUpdateEnvelope(msg)
		default:
			continue
		}

		data, err := json.Marshal(env)
		if err != nil {
			continue
		}
		b.hub.BroadcastRawToScope(scopeID, data, "")
	}
}
