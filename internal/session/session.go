// Package session manages one live subscriber's lifecycle for a scope:
// subscribe on start, dispatch pushed events into the owning sync
// cache, reconnect with bounded backoff on transport loss, and tear
// down synchronously.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ikraamdaanis/discourse/internal/chatsync"
	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/pubsub"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

// ErrTransportLost is recorded when reconnection attempts are exhausted
// and live updates stay paused until the viewer re-opens the scope.
var ErrTransportLost = errors.New("live transport lost")

// State is the connection session's lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Config controls the reconnect policy.
type Config struct {
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	MaxAttempts    int           `mapstructure:"max_attempts"` // per outage; 0 = unlimited
}

// DefaultConfig returns the default reconnect policy.
func DefaultConfig() Config {
	return Config{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		MaxAttempts:    10,
	}
}

// Session is one viewer's live subscription to a scope topic. Events
// received while connected are dispatched to the owning sync cache.
type Session struct {
	bus     pubsub.Subscriber
	topic   string
	cache   *chatsync.Cache
	cfg     Config
	onState func(State)

	mu      sync.Mutex
	state   State
	sub     pubsub.Subscription
	lastErr error
	closed  bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a session for the scope. onState may be nil; when set it
// is invoked on every state transition (used to surface the
// "disconnected, live updates paused" indicator).
func New(bus pubsub.Subscriber, scopeID string, cache *chatsync.Cache, cfg Config, onState func(State)) *Session {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultConfig().MaxBackoff
	}
	return &Session{
		bus:     bus,
		topic:   domain.ScopeTopic(scopeID),
		cache:   cache,
		cfg:     cfg,
		onState: onState,
		done:    make(chan struct{}),
	}
}

// Start establishes the subscription and begins dispatching events.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session closed")
	}
	s.mu.Unlock()

	s.setState(StateConnecting)

	runCtx, cancel := context.WithCancel(ctx)

	sub, err := s.bus.Subscribe(runCtx, s.topic)
	if err != nil {
		cancel()
		s.setState(StateDisconnected)
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		sub.Close()
		return errors.New("session closed")
	}
	s.sub = sub
	s.cancel = cancel
	s.mu.Unlock()

	s.setState(StateConnected)
	go s.run(runCtx)
	return nil
}

// Close tears the session down: the subscription is released before
// returning, the state goes terminal Disconnected, and no reconnect is
// attempted.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	cancel := s.cancel
	started := cancel != nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	if started {
		<-s.done
	}
	s.setState(StateDisconnected)
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal error, if any: ErrTransportLost once
// reconnection attempts are exhausted.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	sub := s.currentSub()
	for {
		for ev := range sub.Events() {
			s.dispatch(ev)
		}

		// The event channel closed: either an orderly teardown or a lost
		// transport.
		if s.isClosed() || ctx.Err() != nil {
			return
		}

		s.setState(StateReconnecting)
		next, ok := s.reconnect(ctx)
		if !ok {
			if s.isClosed() || ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			s.lastErr = ErrTransportLost
			s.mu.Unlock()
			s.setState(StateDisconnected)
			l := log.L()
			l.Warn().Str(log.FieldTopic, s.topic).Msg("live updates paused: reconnect attempts exhausted")
			return
		}

		s.mu.Lock()
		s.sub = next
		s.mu.Unlock()
		s.setState(StateConnected)
		sub = next
	}
}

// reconnect retries the subscription with exponential backoff, capped
// at MaxBackoff, until it succeeds, the attempt budget is spent, or the
// session goes away.
func (s *Session) reconnect(ctx context.Context) (pubsub.Subscription, bool) {
	backoff := s.cfg.InitialBackoff

	for attempt := 1; s.cfg.MaxAttempts == 0 || attempt <= s.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff):
		}
		if s.isClosed() {
			return nil, false
		}

		sub, err := s.bus.Subscribe(ctx, s.topic)
		if err == nil {
			return sub, true
		}

		l := log.L()
		l.Debug().Err(err).Int("attempt", attempt).Str(log.FieldTopic, s.topic).Msg("resubscribe failed")

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
	return nil, false
}

func (s *Session) dispatch(ev *pubsub.Event) {
	var msg domain.Message
	if err := ev.UnmarshalPayload(&msg); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldTopic, s.topic).Msg("dropping malformed event payload")
		return
	}

	switch ev.Type {
	case pubsub.EventMessageCreated:
		s.cache.ApplyCreate(msg)
	case pubsub.EventMessageUpdated:
		s.cache.ApplyUpdate(msg)
	}
}

func (s *Session) currentSub() pubsub.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	cb := s.onState
	s.mu.Unlock()

	if cb != nil {
		cb(state)
	}
}
