package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPublish_DeliversToSubscribers tests basic fan-out delivery
func TestPublish_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	published := bus.Publish(Event{
		Type:    EventAlertRaised,
		Source:  "test",
		Message: "something happened",
	})

	assert.NotEmpty(t, published.ID)
	assert.False(t, published.Timestamp.IsZero())

	select {
	case received := <-ch:
		assert.Equal(t, published.ID, received.ID)
		assert.Equal(t, EventAlertRaised, received.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

// TestPublish_SlowSubscriberDropsInsteadOfBlocking tests the non-blocking
// publication guarantee with a full subscriber buffer
func TestPublish_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(nil)
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			bus.Publish(Event{Type: EventThresholdCrossed, Message: "overflow"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	health := bus.Health()
	assert.Equal(t, uint64(subscriberBuffer+10), health.EventsPublished)
	assert.GreaterOrEqual(t, health.EventsDropped, uint64(10))
}

// TestUnsubscribe_ClosesChannelAndIsIdempotent tests subscriber teardown
func TestUnsubscribe_ClosesChannelAndIsIdempotent(t *testing.T) {
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe()

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Health().Subscribers)

	// Publishing after unsubscribe must not panic on the closed channel
	bus.Publish(Event{Type: EventAlertRaised, Message: "after teardown"})
}

// TestEnterEmergency_PublishesTransitionOnce tests that re-entering only
// updates the reason without a second transition event
func TestEnterEmergency_PublishesTransitionOnce(t *testing.T) {
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.EnterEmergency("monitor", "drawdown breach")
	bus.EnterEmergency("monitor", "second breach")

	assert.True(t, bus.EmergencyActive())

	received := drain(ch)
	require.Len(t, received, 1)
	assert.Equal(t, EventEmergencyEntered, received[0].Type)
	assert.Equal(t, "drawdown breach", received[0].Message)
	assert.Equal(t, "second breach", bus.Health().EmergencyReason)
}

// TestClearEmergency_PublishesTransition tests the flag lowering path
func TestClearEmergency_PublishesTransition(t *testing.T) {
	bus := NewBus(nil)
	bus.EnterEmergency("monitor", "breach")

	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.ClearEmergency("operator")
	assert.False(t, bus.EmergencyActive())

	received := drain(ch)
	require.Len(t, received, 1)
	assert.Equal(t, EventEmergencyCleared, received[0].Type)

	// Clearing an inactive flag is silent
	bus.ClearEmergency("operator")
	assert.Empty(t, drain(ch))
}

// TestHealth_CountsSubscribersAndEvents tests the self-reported summary
func TestHealth_CountsSubscribersAndEvents(t *testing.T) {
	bus := NewBus(nil)
	_, unsub1 := bus.Subscribe()
	_, unsub2 := bus.Subscribe()
	defer unsub1()
	defer unsub2()

	bus.Publish(Event{Type: EventConfigUpdated, Message: "applied"})

	health := bus.Health()
	assert.Equal(t, 2, health.Subscribers)
	assert.Equal(t, uint64(1), health.EventsPublished)
	assert.False(t, health.LastEventAt.IsZero())
	assert.False(t, health.EmergencyActive)
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
