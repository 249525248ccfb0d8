package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterFansOutToRoomSubscribers(t *testing.T) {
	b := NewBroadcaster()
	sub1 := b.Subscribe("room-1")
	sub2 := b.Subscribe("room-1")
	other := b.Subscribe("room-2")
	defer sub1.Cancel()
	defer sub2.Cancel()
	defer other.Cancel()

	b.Publish(Event{RoomID: "room-1", Type: EventPlaybackChanged, Payload: "state"})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case event := <-sub.C():
			assert.Equal(t, EventPlaybackChanged, event.Type)
			assert.Equal(t, "state", event.Payload)
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}

	select {
	case <-other.C():
		t.Fatal("event leaked across rooms")
	default:
	}
}

func TestBroadcasterFiltersByEventType(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("room-1", EventChatPosted)
	defer sub.Cancel()

	b.Publish(Event{RoomID: "room-1", Type: EventPlaybackChanged})
	b.Publish(Event{RoomID: "room-1", Type: EventChatPosted})

	event := <-sub.C()
	assert.Equal(t, EventChatPosted, event.Type)

	select {
	case event := <-sub.C():
		t.Fatalf("unexpected event: %v", event.Type)
	default:
	}
}

func TestBroadcasterCancelStopsDelivery(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("room-1")

	sub.Cancel()
	// cancelling twice must be safe
	sub.Cancel()

	b.Publish(Event{RoomID: "room-1", Type: EventRoomDestroyed})

	_, ok := <-sub.C()
	assert.False(t, ok, "channel must be closed after cancel")
}

func TestBroadcasterDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("room-1")
	defer sub.Cancel()

	// overflow the buffer; the publisher must not block
	for i := 0; i < subscriptionBuffer+10; i++ {
		b.Publish(Event{RoomID: "room-1", Type: EventChatPosted, Payload: i})
	}

	received := 0
	for {
		select {
		case <-sub.C():
			received++
			continue
		default:
		}
		break
	}

	require.Equal(t, subscriptionBuffer, received)
}

func TestBroadcasterPublishToEmptyRoom(t *testing.T) {
	b := NewBroadcaster()
	// no subscribers, must not panic
	b.Publish(Event{RoomID: "room-1", Type: EventRoomMutated})
}
