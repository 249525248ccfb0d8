package room

type Room struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	HostName string `json:"host_name"`
	VideoURL string `json:"video_url"`
	Locked   bool   `json:"locked"`
}

type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsHost   bool   `json:"is_host"`
	IsOnline bool   `json:"is_online"`
}

type PlaybackState struct {
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"`
	UpdatedAt int64   `json:"updated_at"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	MemberID  string `json:"member_id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

type Reaction struct {
	ID        string `json:"id"`
	MemberID  string `json:"member_id"`
	Emoji     string `json:"emoji"`
	CreatedAt int64  `json:"created_at"`
}

// MembershipChangedPayload describes one membership transition. Exactly one
// of JoinedMember, LeftMemberID or KickedMemberID is set; Members is always
// the full list after the change.
type MembershipChangedPayload struct {
	JoinedMember   *Member  `json:"joined_member,omitempty"`
	LeftMemberID   string   `json:"left_member_id,omitempty"`
	KickedMemberID string   `json:"kicked_member_id,omitempty"`
	Members        []Member `json:"members"`
}

type RoomMutatedPayload struct {
	Locked   *bool   `json:"locked,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`
}
