// Package notification provides the notification manager for broadcasting player state.
package notification

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/app/playback"
)

const defaultBuffer = 32

// Notification is one state update delivered to subscribers.
type Notification struct {
	SequenceNo uint64
	Type       string        // Event type, e.g. "track_changed"
	Message    string        // User-facing notice, may be empty
	View       playback.View // Player state after the event
}

// Subscription receives notifications until it is unsubscribed.
type Subscription struct {
	ID string
	C  <-chan *Notification

	ch      chan *Notification
	dropped atomic.Uint64
	once    sync.Once
}

// Dropped returns how many notifications were discarded because the subscriber lagged.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	closed        bool
	sequenceNo    atomic.Uint64
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*Subscription),
	}
}

// Subscribe adds a new subscription with room for buffer pending notifications.
// The channel is closed by Unsubscribe or Close.
func (m *Manager) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan *Notification, buffer)
	sub := &Subscription{
		ID: uuid.New().String(),
		C:  ch,
		ch: ch,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		sub.close()
		return sub
	}
	m.subscriptions[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[subscriptionID]; ok {
		delete(m.subscriptions, subscriptionID)
		sub.close()
	}
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	return m.sequenceNo.Add(1)
}

// Broadcast stamps n with a sequence number and queues it for every subscriber.
// A subscriber whose buffer is full misses the notification.
func (m *Manager) Broadcast(n *Notification) {
	n.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		select {
		case sub.ch <- n:
		default:
			if sub.dropped.Add(1) == 1 {
				zlog.Warn().Msgf("notification: subscriber lagging, dropping notifications: id=%s", sub.ID)
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions and closes their channels.
// Later subscriptions are returned already closed.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subscriptions {
		sub.close()
		delete(m.subscriptions, id)
	}
	m.closed = true
}
