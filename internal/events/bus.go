// Package events owns the emergency-stop flag and the event fan-out that
// lets any number of listeners observe safety events without being able to
// stall the publisher.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
)

// EventType classifies a safety event
type EventType string

const (
	EventAlertRaised      EventType = "alert_raised"
	EventThresholdCrossed EventType = "threshold_crossed"
	EventEmergencyEntered EventType = "emergency_entered"
	EventEmergencyCleared EventType = "emergency_cleared"
	EventActionExecuted   EventType = "action_executed"
	EventConfigUpdated    EventType = "config_updated"
)

// Event is one observable occurrence in the safety pipeline
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Severity  string                 `json:"severity"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// subscriberBuffer bounds each listener's backlog; slow listeners lose
// events rather than blocking publication.
const subscriberBuffer = 64

// HealthSummary is the bus's self-reported state
type HealthSummary struct {
	EmergencyActive bool      `json:"emergency_active"`
	EmergencyReason string    `json:"emergency_reason,omitempty"`
	EmergencySince  time.Time `json:"emergency_since,omitempty"`
	Subscribers     int       `json:"subscribers"`
	EventsPublished uint64    `json:"events_published"`
	EventsDropped   uint64    `json:"events_dropped"`
	LastEventAt     time.Time `json:"last_event_at,omitempty"`
}

// Bus is the event fan-out and emergency-flag owner. Publication never
// blocks: each subscriber has a bounded buffer and overflow is dropped and
// counted.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int

	emergencyActive bool
	emergencyReason string
	emergencySince  time.Time

	published   uint64
	dropped     uint64
	lastEventAt time.Time

	log *logger.Logger
}

// NewBus creates an event bus with no subscribers
func NewBus(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Bus{
		subscribers: make(map[int]chan Event),
		log:         log,
	}
}

// Subscribe registers a listener and returns its event channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

// Publish delivers an event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (b *Bus) Publish(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.published++
	b.lastEventAt = event.Timestamp
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped++
		}
	}
	return event
}

// EnterEmergency raises the emergency flag and publishes the transition.
// Re-entering while already active only updates the reason.
func (b *Bus) EnterEmergency(source, reason string) {
	b.mu.Lock()
	alreadyActive := b.emergencyActive
	b.emergencyActive = true
	b.emergencyReason = reason
	if !alreadyActive {
		b.emergencySince = time.Now()
	}
	b.mu.Unlock()

	if !alreadyActive {
		b.log.Alert("emergency state entered by %s: %s", source, reason)
		b.Publish(Event{
			Type:     EventEmergencyEntered,
			Severity: "critical",
			Source:   source,
			Message:  reason,
		})
	}
}

// ClearEmergency lowers the emergency flag and publishes the transition.
// Clearing an inactive flag is a no-op.
func (b *Bus) ClearEmergency(source string) {
	b.mu.Lock()
	wasActive := b.emergencyActive
	b.emergencyActive = false
	b.emergencyReason = ""
	b.mu.Unlock()

	if wasActive {
		b.log.Info("emergency state cleared by %s", source)
		b.Publish(Event{
			Type:     EventEmergencyCleared,
			Severity: "low",
			Source:   source,
			Message:  "emergency state cleared",
		})
	}
}

// EmergencyActive reports whether the emergency flag is raised
func (b *Bus) EmergencyActive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.emergencyActive
}

// Health returns the bus's self-reported state
func (b *Bus) Health() HealthSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return HealthSummary{
		EmergencyActive: b.emergencyActive,
		EmergencyReason: b.emergencyReason,
		EmergencySince:  b.emergencySince,
		Subscribers:     len(b.subscribers),
		EventsPublished: b.published,
		EventsDropped:   b.dropped,
		LastEventAt:     b.lastEventAt,
	}
}
