// Package bus is the append-only event stream decoupling pipeline stages.
//
// Publishes go to the durable backend when one is configured and healthy;
// any backend failure degrades silently to an in-memory per-topic log.
// Callers never see a bus error: losing durability beats blocking the
// pipeline on an unreachable backend.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tradeflow/internal/logger"
)

const (
	// TopicIdeas carries idea lifecycle events from producers.
	TopicIdeas = "idea_stream"
	// TopicStrategies carries strategy drafts and trade outcomes.
	TopicStrategies = "strategy_stream"

	defaultBackendTimeout = 2 * time.Second
)

// Backend is an optional durable append-only log.
type Backend interface {
	Append(ctx context.Context, topic string, payload []byte) (string, error)
	Tail(ctx context.Context, topic string, count int) ([][]byte, error)
}

type memEvent struct {
	id      string
	payload []byte
}

// EventBus is the per-topic event log with memory fallback.
type EventBus struct {
	backend Backend
	timeout time.Duration

	mu  sync.Mutex
	mem map[string][]memEvent
	seq int64
}

// Option configures an EventBus.
type Option func(*EventBus)

// WithBackend attaches a durable backend.
func WithBackend(b Backend) Option {
	return func(eb *EventBus) { eb.backend = b }
}

// WithBackendTimeout bounds every backend call.
func WithBackendTimeout(d time.Duration) Option {
	return func(eb *EventBus) {
		if d > 0 {
			eb.timeout = d
		}
	}
}

// New creates an EventBus. Without options it is purely in-memory.
func New(opts ...Option) *EventBus {
	eb := &EventBus{
		timeout: defaultBackendTimeout,
		mem:     make(map[string][]memEvent),
	}
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

// Publish appends an event to the topic and returns its id. Never fails:
// a backend error falls through to the in-memory log for this call.
func (eb *EventBus) Publish(ctx context.Context, topic string, payload map[string]any) string {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warnf("bus: unmarshalable payload on %s: %v", topic, err)
		return ""
	}
	if eb.backend != nil {
		bctx, cancel := context.WithTimeout(ctx, eb.timeout)
		id, err := eb.backend.Append(bctx, topic, body)
		cancel()
		if err == nil {
			return id
		}
		logger.Warnf("bus: backend append failed on %s, using memory: %v", topic, err)
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.seq++
	id := fmt.Sprintf("mem-%d", eb.seq)
	eb.mem[topic] = append(eb.mem[topic], memEvent{id: id, payload: body})
	return id
}

// ReadRecent returns up to count payloads from the topic, newest first.
// Best effort: undecodable entries are skipped, backend errors fall through
// to the in-memory log.
func (eb *EventBus) ReadRecent(ctx context.Context, topic string, count int) []map[string]any {
	if count <= 0 {
		count = 20
	}
	if eb.backend != nil {
		bctx, cancel := context.WithTimeout(ctx, eb.timeout)
		raws, err := eb.backend.Tail(bctx, topic, count)
		cancel()
		if err == nil {
			return decodeAll(raws)
		}
		logger.Warnf("bus: backend tail failed on %s, using memory: %v", topic, err)
	}

	eb.mu.Lock()
	events := eb.mem[topic]
	raws := make([][]byte, 0, count)
	for i := len(events) - 1; i >= 0 && len(raws) < count; i-- {
		raws = append(raws, events[i].payload)
	}
	eb.mu.Unlock()
	return decodeAll(raws)
}

func decodeAll(raws [][]byte) []map[string]any {
	out := make([]map[string]any, 0, len(raws))
	for _, raw := range raws {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		out = append(out, payload)
	}
	return out
}
