package pubsub

import (
	"context"
	"sync"
)

// MemoryPubSub is the in-process event bus. Every subscription owns a
// delivery queue drained by its own goroutine, so a slow subscriber
// only grows its queue and never stalls publishers or its siblings.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	closed bool
}

// NewMemoryPubSub creates an in-process PubSub instance.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{
		subs: make(map[string][]*memorySubscription),
	}
}

// Publish enqueues the event on every live subscription of the topic.
func (m *MemoryPubSub) Publish(_ context.Context, topic string, event *Event) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	subs := make([]*memorySubscription, len(m.subs[topic]))
	copy(subs, m.subs[topic])
	m.mu.RUnlock()

	for _, s := range subs {
		s.enqueue(event)
	}
	return nil
}

// Subscribe registers a new subscription on the topic.
func (m *MemoryPubSub) Subscribe(_ context.Context, topic string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	s := &memorySubscription{
		bus:   m,
		topic: topic,
		ch:    make(chan *Event, 16),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	m.subs[topic] = append(m.subs[topic], s)

	go s.run()
	return s, nil
}

// Close shuts down the bus and every open subscription.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var all []*memorySubscription
	for _, subs := range m.subs {
		all = append(all, subs...)
	}
	m.subs = make(map[string][]*memorySubscription)
	m.mu.Unlock()

	for _, s := range all {
		s.shutdown()
	}
	return nil
}

func (m *MemoryPubSub) remove(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			m.subs[sub.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subs[sub.topic]) == 0 {
		delete(m.subs, sub.topic)
	}
}

type memorySubscription struct {
	bus   *MemoryPubSub
	topic string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Event
	closed bool

	ch   chan *Event
	stop chan struct{}
	done chan struct{}
}

func (s *memorySubscription) Events() <-chan *Event { return s.ch }

// Close detaches the subscription from the bus. It blocks until the
// delivery goroutine has stopped, so no event is delivered after it
// returns, and the events channel is closed.
func (s *memorySubscription) Close() error {
	s.bus.remove(s)
	s.shutdown()
	return nil
}

func (s *memorySubscription) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.stop)
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.done
}

func (s *memorySubscription) enqueue(event *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, event)
	s.cond.Signal()
}

func (s *memorySubscription) run() {
	defer close(s.done)
	defer close(s.ch)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- event:
		case <-s.stop:
			return
		}
	}
}
