package broadcast

type EventType string

const (
	EventPlaybackChanged   EventType = "PLAYBACK_CHANGED"
	EventMembershipChanged EventType = "MEMBERSHIP_CHANGED"
	EventRoomMutated       EventType = "ROOM_MUTATED"
	EventRoomDestroyed     EventType = "ROOM_DESTROYED"
	EventChatPosted        EventType = "CHAT_POSTED"
	EventReactionFired     EventType = "REACTION_FIRED"
)

type Event struct {
	RoomID  string
	Type    EventType
	Payload any
}
