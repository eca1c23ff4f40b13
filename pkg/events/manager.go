package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/logging"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this loses events (the persisted feed remains
// the authoritative record).
const subscriberBuffer = 128

// Subscription delivers events to a single subscriber.
type Subscription struct {
	C     <-chan Event
	ch    chan Event
	types map[string]bool // empty means all types
}

// wants reports whether the subscription is interested in the event type.
func (s *Subscription) wants(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	return s.types[eventType]
}

// Manager fans committed events out to live subscribers. Publishing never
// blocks: slow subscribers drop events rather than stalling writers.
type Manager struct {
	logger *logging.ColoredLogger

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewManager creates an event manager.
func NewManager(logger *logging.ColoredLogger) *Manager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Manager{
		logger: logger,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a subscriber for the given event types.
// No types means every event.
func (m *Manager) Subscribe(types ...string) *Subscription {
	sub := &Subscription{
		ch:    make(chan Event, subscriberBuffer),
		types: make(map[string]bool, len(types)),
	}
	sub.C = sub.ch
	for _, t := range types {
		sub.types[t] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(sub.ch)
		return sub
	}
	m.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Manager) Unsubscribe(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub]; !ok {
		return
	}
	delete(m.subs, sub)
	close(sub.ch)
}

// Publish delivers an event to all interested subscribers without blocking.
func (m *Manager) Publish(evt Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	for sub := range m.subs {
		if !sub.wants(evt.Type) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			m.logger.ComponentWarn(logging.ComponentEvents, "subscriber lagging, dropping event",
				zap.Int64("seq", evt.Seq),
				zap.String("type", evt.Type),
			)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Close shuts down the manager and closes all subscriber channels.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for sub := range m.subs {
		delete(m.subs, sub)
		close(sub.ch)
	}
}
