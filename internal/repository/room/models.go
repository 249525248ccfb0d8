package room

type Room struct {
	Code     string `redis:"code"`
	Name     string `redis:"name"`
	HostName string `redis:"host_name"`
	VideoURL string `redis:"video_url"`
	Locked   bool   `redis:"locked"`
}

type Member struct {
	Username string `redis:"username"`
	IsHost   bool   `redis:"is_host"`
	// UserID links the member to a durable user account. Empty for guests.
	UserID string `redis:"user_id"`
	RoomID string `redis:"room_id"`
}

type PlaybackState struct {
	IsPlaying bool    `redis:"is_playing"`
	Position  float64 `redis:"position"`
	UpdatedAt int64   `redis:"updated_at"`
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
