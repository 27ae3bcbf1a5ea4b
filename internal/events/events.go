// Package events publishes domain events after the writes that cause them
// have been committed. Publishing is best effort: callers log failures and
// carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type Type string

const (
	UserRegistered      Type = "user.registered"
	PostCreated         Type = "post.created"
	FriendshipRequested Type = "friendship.requested"
	FriendshipAccepted  Type = "friendship.accepted"
	FriendshipRemoved   Type = "friendship.removed"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// New stamps an event. key picks the partition, so events for the same
// aggregate stay ordered.
func New(t Type, key string, data any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		Key:        key,
		OccurredAt: time.Now(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// KafkaPublisher writes events as JSON messages to a single topic.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", e.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.Key),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(ctx context.Context, e Event) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
