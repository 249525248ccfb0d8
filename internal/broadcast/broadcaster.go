package broadcast

import (
	"sync"
)

const subscriptionBuffer = 64

// Broadcaster fans room-scoped events out to every subscriber of the room.
// Delivery is at-least-once flavored: a subscriber that cannot keep up has
// events dropped rather than blocking the publisher, and consumers are
// expected to tolerate duplicates and reordering (playback consumers do so
// via the updated_at tiebreak). No ordering is guaranteed across event types.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

type Subscription struct {
	b      *Broadcaster
	roomID string
	types  map[EventType]struct{}
	ch     chan Event

	cancelOnce sync.Once
}

// Subscribe registers for the given event types in one room. With no types
// given, every event of the room is delivered. The returned subscription must
// be cancelled, or it leaks.
func (b *Broadcaster) Subscribe(roomID string, types ...EventType) *Subscription {
	sub := &Subscription{
		b:      b,
		roomID: roomID,
		ch:     make(chan Event, subscriptionBuffer),
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[*Subscription]struct{})
	}
	b.subs[roomID][sub] = struct{}{}

	return sub
}

func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[event.RoomID] {
		if !sub.matches(event.Type) {
			continue
		}

		// never block the publisher on a slow subscriber
		select {
		case sub.ch <- event:
		default:
		}
	}
}

func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Cancel removes the subscription and closes its channel. Safe to call more
// than once.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()

		delete(s.b.subs[s.roomID], s)
		if len(s.b.subs[s.roomID]) == 0 {
			delete(s.b.subs, s.roomID)
		}
		close(s.ch)
	})
}

func (s *Subscription) matches(t EventType) bool {
	if s.types == nil {
		return true
	}

	_, ok := s.types[t]
	return ok
}
