package room

import "time"

type SetRoomParams struct {
	RoomID   string
	Code     string
	Name     string
	HostName string
	VideoURL string
	Locked   bool
}

type SetMemberParams struct {
	MemberID string
	Username string
	IsHost   bool
	UserID   string
	RoomID   string
}

type RemoveMemberParams struct {
	MemberID string
	RoomID   string
}

type GetMemberParams struct {
	MemberID string
	RoomID   string
}

type SetPlaybackStateParams struct {
	IsPlaying bool
	Position  float64
	UpdatedAt int64
	RoomID    string
}

// UpdatePlaybackStateParams carries a partial update. Nil fields are left
// untouched; UpdatedAt is always rewritten by the store.
type UpdatePlaybackStateParams struct {
	IsPlaying *bool
	Position  *float64
	UpdatedAt int64
	RoomID    string
}

type AddChatMessageParams struct {
	Message ChatMessage
	RoomID  string
}

type AddReactionParams struct {
	Reaction Reaction
	RoomID   string
}

type AnnouncePresenceParams struct {
	MemberID    string
	AnnouncedAt time.Time
	RoomID      string
}

type GetOnlineMemberIDsParams struct {
	// Members announced before Since are considered offline.
	Since  time.Time
	RoomID string
}
