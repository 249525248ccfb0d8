package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/repository/room"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, time.Hour)
}

func setTestRoom(t *testing.T, r *repo, roomID, code string) {
	t.Helper()

	err := r.SetRoom(context.Background(), &room.SetRoomParams{
		RoomID:   roomID,
		Code:     code,
		Name:     "test room",
		HostName: "host",
		VideoURL: "video",
		Locked:   false,
	})
	require.NoError(t, err)
}

func TestSetRoomClaimsCode(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	setTestRoom(t, r, "room-1", "ABC123")

	err := r.SetRoom(ctx, &room.SetRoomParams{
		RoomID: "room-2",
		Code:   "ABC123",
	})
	assert.ErrorIs(t, err, room.ErrRoomCodeTaken)

	// codes are matched case-insensitively
	err = r.SetRoom(ctx, &room.SetRoomParams{
		RoomID: "room-2",
		Code:   "abc123",
	})
	assert.ErrorIs(t, err, room.ErrRoomCodeTaken)
}

func TestGetRoomIDByCode(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	setTestRoom(t, r, "room-1", "ABC123")

	roomID, err := r.GetRoomIDByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)

	_, err = r.GetRoomIDByCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestGetRoom(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	setTestRoom(t, r, "room-1", "ABC123")

	rm, err := r.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", rm.Code)
	assert.Equal(t, "test room", rm.Name)
	assert.Equal(t, "host", rm.HostName)
	assert.False(t, rm.Locked)

	_, err = r.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdateRoomLocked(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	setTestRoom(t, r, "room-1", "ABC123")

	require.NoError(t, r.UpdateRoomLocked(ctx, "room-1", true))

	rm, err := r.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, rm.Locked)

	err = r.UpdateRoomLocked(ctx, "missing", true)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdatePlaybackStateIsMonotonic(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.SetPlaybackState(ctx, &room.SetPlaybackStateParams{
		IsPlaying: false,
		Position:  0,
		UpdatedAt: 100,
		RoomID:    "room-1",
	})
	require.NoError(t, err)

	isPlaying := true
	position := 5.0

	// candidate equal to the stored value must still advance
	applied, err := r.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		IsPlaying: &isPlaying,
		Position:  &position,
		UpdatedAt: 100,
		RoomID:    "room-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), applied)

	// a stale candidate must advance too
	applied, err = r.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		Position:  &position,
		UpdatedAt: 50,
		RoomID:    "room-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(102), applied)

	// a fresh candidate is taken as-is
	applied, err = r.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		IsPlaying: &isPlaying,
		UpdatedAt: 500,
		RoomID:    "room-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), applied)

	state, err := r.GetPlaybackState(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, state.IsPlaying)
	assert.Equal(t, 5.0, state.Position)
	assert.Equal(t, int64(500), state.UpdatedAt)
}

func TestUpdatePlaybackStatePartial(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.SetPlaybackState(ctx, &room.SetPlaybackStateParams{
		IsPlaying: true,
		Position:  30,
		UpdatedAt: 100,
		RoomID:    "room-1",
	})
	require.NoError(t, err)

	isPlaying := false
	_, err = r.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		IsPlaying: &isPlaying,
		UpdatedAt: 200,
		RoomID:    "room-1",
	})
	require.NoError(t, err)

	state, err := r.GetPlaybackState(ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 30.0, state.Position, "omitted position must be untouched")
}

func TestUpdatePlaybackStateOfMissingRoom(t *testing.T) {
	r := newTestRepo(t)

	isPlaying := true
	_, err := r.UpdatePlaybackState(context.Background(), &room.UpdatePlaybackStateParams{
		IsPlaying: &isPlaying,
		UpdatedAt: 100,
		RoomID:    "missing",
	})
	assert.ErrorIs(t, err, room.ErrPlaybackStateNotFound)
}

func TestMemberLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.SetMember(ctx, &room.SetMemberParams{
		MemberID: "m-1",
		Username: "alice",
		IsHost:   true,
		RoomID:   "room-1",
	})
	require.NoError(t, err)
	err = r.SetMember(ctx, &room.SetMemberParams{
		MemberID: "m-2",
		Username: "bob",
		IsHost:   false,
		RoomID:   "room-1",
	})
	require.NoError(t, err)

	memberIDs, err := r.GetMemberIDs(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1", "m-2"}, memberIDs, "ids must come back in join order")

	member, err := r.GetMember(ctx, &room.GetMemberParams{MemberID: "m-2", RoomID: "room-1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", member.Username)
	assert.False(t, member.IsHost)

	isHost, err := r.IsMemberHost(ctx, &room.GetMemberParams{MemberID: "m-1", RoomID: "room-1"})
	require.NoError(t, err)
	assert.True(t, isHost)

	_, err = r.IsMemberHost(ctx, &room.GetMemberParams{MemberID: "ghost", RoomID: "room-1"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	err = r.RemoveMember(ctx, &room.RemoveMemberParams{MemberID: "m-2", RoomID: "room-1"})
	require.NoError(t, err)

	_, err = r.GetMember(ctx, &room.GetMemberParams{MemberID: "m-2", RoomID: "room-1"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	err = r.RemoveMember(ctx, &room.RemoveMemberParams{MemberID: "m-2", RoomID: "room-1"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestPresenceWindowAgesOut(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	now := time.Now()

	err := r.AnnouncePresence(ctx, &room.AnnouncePresenceParams{
		MemberID:    "m-old",
		AnnouncedAt: now.Add(-20 * time.Second),
		RoomID:      "room-1",
	})
	require.NoError(t, err)
	err = r.AnnouncePresence(ctx, &room.AnnouncePresenceParams{
		MemberID:    "m-fresh",
		AnnouncedAt: now,
		RoomID:      "room-1",
	})
	require.NoError(t, err)

	online, err := r.GetOnlineMemberIDs(ctx, &room.GetOnlineMemberIDsParams{
		Since:  now.Add(-10 * time.Second),
		RoomID: "room-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"m-fresh"}, online)

	// re-announcing moves an aged-out member back inside the window
	err = r.AnnouncePresence(ctx, &room.AnnouncePresenceParams{
		MemberID:    "m-old",
		AnnouncedAt: now,
		RoomID:      "room-1",
	})
	require.NoError(t, err)

	online, err = r.GetOnlineMemberIDs(ctx, &room.GetOnlineMemberIDsParams{
		Since:  now.Add(-10 * time.Second),
		RoomID: "room-1",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m-fresh", "m-old"}, online)
}

func TestRemovePresence(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	now := time.Now()
	err := r.AnnouncePresence(ctx, &room.AnnouncePresenceParams{
		MemberID:    "m-1",
		AnnouncedAt: now,
		RoomID:      "room-1",
	})
	require.NoError(t, err)

	require.NoError(t, r.RemovePresence(ctx, "room-1", "m-1"))

	online, err := r.GetOnlineMemberIDs(ctx, &room.GetOnlineMemberIDsParams{
		Since:  now.Add(-10 * time.Second),
		RoomID: "room-1",
	})
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestChatHistoryLimit(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := r.AddChatMessage(ctx, &room.AddChatMessageParams{
			Message: room.ChatMessage{
				ID:        string(rune('a' + i)),
				MemberID:  "m-1",
				Username:  "alice",
				Text:      "msg",
				CreatedAt: int64(i),
			},
			RoomID: "room-1",
		})
		require.NoError(t, err)
	}

	messages, err := r.GetChatMessages(ctx, "room-1", 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "c", messages[0].ID, "limit must keep the newest messages")
	assert.Equal(t, "e", messages[2].ID)

	messages, err = r.GetChatMessages(ctx, "room-1", 10)
	require.NoError(t, err)
	assert.Len(t, messages, 5)

	messages, err = r.GetChatMessages(ctx, "empty-room", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRemoveRoomCascades(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	setTestRoom(t, r, "room-1", "ABC123")
	err := r.SetPlaybackState(ctx, &room.SetPlaybackStateParams{
		IsPlaying: true,
		Position:  10,
		UpdatedAt: 100,
		RoomID:    "room-1",
	})
	require.NoError(t, err)
	err = r.AddChatMessage(ctx, &room.AddChatMessageParams{
		Message: room.ChatMessage{ID: "msg-1", Text: "hi"},
		RoomID:  "room-1",
	})
	require.NoError(t, err)
	err = r.AnnouncePresence(ctx, &room.AnnouncePresenceParams{
		MemberID:    "m-1",
		AnnouncedAt: time.Now(),
		RoomID:      "room-1",
	})
	require.NoError(t, err)

	require.NoError(t, r.RemoveRoom(ctx, "room-1"))

	_, err = r.GetRoom(ctx, "room-1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	_, err = r.GetRoomIDByCode(ctx, "ABC123")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	_, err = r.GetPlaybackState(ctx, "room-1")
	assert.ErrorIs(t, err, room.ErrPlaybackStateNotFound)

	messages, err := r.GetChatMessages(ctx, "room-1", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// the code is reusable once the room is gone
	setTestRoom(t, r, "room-2", "ABC123")

	err = r.RemoveRoom(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}
