package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPubSub implements the event bus over Redis pub/sub, for running
// several gateway instances against one message stream.
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub creates a new Redis-based PubSub instance.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{client: client}, nil
}

// Publish publishes an event to the specified topic.
func (r *RedisPubSub) Publish(ctx context.Context, topic string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, topic, data).Err()
}

// Subscribe opens a dedicated Redis subscription on the topic.
func (r *RedisPubSub) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := r.client.Subscribe(ctx, topic)

	// Force the subscription to be established before returning.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s := &redisSubscription{
		ps:   ps,
		ch:   make(chan *Event, 16),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Close closes the Redis client. Open subscriptions are terminated.
func (r *RedisPubSub) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan *Event
	stop chan struct{}
	done chan struct{}
}

func (s *redisSubscription) Events() <-chan *Event { return s.ch }

// Close tears down the Redis subscription and waits for the forwarding
// goroutine to stop before returning.
func (s *redisSubscription) Close() error {
	close(s.stop)
	err := s.ps.Close()
	<-s.done
	return err
}

func (s *redisSubscription) run() {
	defer close(s.done)
	defer close(s.ch)

	for msg := range s.ps.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			continue
		}
		select {
		case s.ch <- &event:
		case <-s.stop:
			return
		}
	}
}
