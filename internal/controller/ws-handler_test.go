package controller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/broadcast"
	"github.com/watchroom/server/internal/repository/connection/inmemory"
	roomRedis "github.com/watchroom/server/internal/repository/room/redis"
	"github.com/watchroom/server/internal/service/room"
)

func newTestServer(t *testing.T) (iRoomService, *httptest.Server) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := room.NewService(
		roomRedis.NewRepo(rc, 24*time.Hour),
		inmemory.NewRepo(),
		broadcast.NewBroadcaster(),
		&room.Config{
			CodeLength:       6,
			CodeMaxAttempts:  5,
			PresenceWindow:   10 * time.Second,
			ChatHistoryLimit: 25,
		},
		logger,
	)

	srv := httptest.NewServer(NewController(service, logger).GetMux())
	t.Cleanup(srv.Close)

	return service, srv
}

func wsURL(srv *httptest.Server, roomID, memberID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/room/" + roomID + "?member-id=" + memberID
}

func TestConnectRoomSendsSnapshot(t *testing.T) {
	service, srv := newTestServer(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &room.CreateRoomParams{
		RoomName: "movie night",
		HostName: "alice",
		VideoURL: "video",
	})
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, createRoomResp.Room.ID, createRoomResp.HostMember.ID), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var out struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "ROOM_STATE", out.Type)
	assert.Contains(t, string(out.Payload), createRoomResp.Room.Code)
}

func TestConnectRoomRejectsUnknownMember(t *testing.T) {
	service, srv := newTestServer(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &room.CreateRoomParams{
		RoomName: "movie night",
		HostName: "alice",
		VideoURL: "video",
	})
	require.NoError(t, err)

	// a fabricated id must not see the snapshot, even less so on a locked room
	_, err = service.ToggleLock(ctx, &room.ToggleLockParams{
		SenderID: createRoomResp.HostMember.ID,
		RoomID:   createRoomResp.Room.ID,
	})
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, createRoomResp.Room.ID, "not-a-member"), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConnectRoomRejectsKickedMember(t *testing.T) {
	service, srv := newTestServer(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &room.CreateRoomParams{
		RoomName: "movie night",
		HostName: "alice",
		VideoURL: "video",
	})
	require.NoError(t, err)

	joinRoomResp, err := service.JoinRoom(ctx, &room.JoinRoomParams{
		Code:     createRoomResp.Room.Code,
		Username: "bob",
	})
	require.NoError(t, err)

	_, err = service.KickMember(ctx, &room.KickMemberParams{
		TargetID: joinRoomResp.JoinedMember.ID,
		SenderID: createRoomResp.HostMember.ID,
		RoomID:   createRoomResp.Room.ID,
	})
	require.NoError(t, err)

	// the removed id is no longer a valid resume key
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, createRoomResp.Room.ID, joinRoomResp.JoinedMember.ID), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConnectRoomUnknownRoom(t *testing.T) {
	_, srv := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "no-such-room", "no-such-member"), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
