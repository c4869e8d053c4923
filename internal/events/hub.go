package events

import (
	"context"
	"sync"
	"time"

	"quotaflow-go/internal/monitoring"

	log "github.com/sirupsen/logrus"
)

const (
	TopicConfigUpdated     = "config.updated"
	TopicCredentialRotated = "credential.rotated"
	TopicPoolReset         = "credential.pool_reset"
	TopicTierFallback      = "tier.fallback"
	TopicOverrideChanged   = "preferences.override_changed"
)

// Event is one message delivered to subscribers.
type Event struct {
	Topic     string            `json:"topic"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   any               `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Handler func(context.Context, Event)

// Publisher is what the pool, the cascade and the management routes depend on.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, metadata map[string]string)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Hub fans events out to subscribers in subscription order, on the
// publishing goroutine. A panicking handler is logged and skipped.
type Hub struct {
	mu     sync.RWMutex
	topics map[string][]subscription
	seq    uint64
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string][]subscription)}
}

// Subscribe adds handler to topic; the returned func removes it and is idempotent.
func (h *Hub) Subscribe(topic string, handler Handler) func() {
	h.mu.Lock()
	h.seq++
	id := h.seq
	h.topics[topic] = append(h.topics[topic], subscription{id: id, handler: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { h.remove(topic, id) }) }
}

func (h *Hub) remove(topic string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.topics[topic]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// copy so an in-flight snapshot keeps its own backing array
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(h.topics, topic)
		} else {
			h.topics[topic] = next
		}
		return
	}
}

// SubscribeAll subscribes handler to each topic; one func undoes all of them.
func (h *Hub) SubscribeAll(handler Handler, topics ...string) func() {
	cancels := make([]func(), len(topics))
	for i, topic := range topics {
		cancels[i] = h.Subscribe(topic, handler)
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func (h *Hub) Publish(ctx context.Context, topic string, payload any, metadata map[string]string) {
	subs := h.snapshotHandlers(topic)
	if len(subs) == 0 {
		return
	}
	ev := Event{Topic: topic, Timestamp: time.Now().UTC(), Payload: payload, Metadata: metadata}
	for _, fn := range subs {
		deliver(ctx, fn, ev)
	}
}

func deliver(ctx context.Context, fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.PanicsRecoveredTotal.WithLabelValues("event").Inc()
			log.WithFields(log.Fields{"topic": ev.Topic, "panic": r}).Error("event handler panicked")
		}
	}()
	fn(ctx, ev)
}

func (h *Hub) snapshotHandlers(topic string) []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.topics[topic]
	if len(subs) == 0 {
		return nil
	}
	out := make([]Handler, len(subs))
	for i, s := range subs {
		out[i] = s.handler
	}
	return out
}
