package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getRoomKey(roomID string) string {
	return "room:" + roomID
}

func (r repo) getRoomCodeKey(code string) string {
	// codes are case-insensitive
	return "roomcode:" + strings.ToUpper(code)
}

// SetRoom claims the room code and creates the room hash. The code claim is a
// SETNX, so two concurrent creates with the same code cannot both succeed.
func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	funcName := "room.redis.SetRoom"
	slog.DebugContext(ctx, funcName, "params", params)

	ok, err := r.rc.SetNX(ctx, r.getRoomCodeKey(params.Code), params.RoomID, r.keyTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to claim room code: %w", err)
	}
	if !ok {
		return room.ErrRoomCodeTaken
	}

	roomKey := r.getRoomKey(params.RoomID)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey,
		"code", strings.ToUpper(params.Code),
		"name", params.Name,
		"host_name", params.HostName,
		"video_url", params.VideoURL,
		"locked", params.Locked,
	)
	pipe.Expire(ctx, roomKey, r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomID string) (room.Room, error) {
	funcName := "room.redis.GetRoom"
	slog.DebugContext(ctx, funcName, "roomID", roomID)

	cmd := r.rc.HGetAll(ctx, r.getRoomKey(roomID))
	if err := cmd.Err(); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return room.Room{}, room.ErrRoomNotFound
	}

	var rm room.Room
	if err := cmd.Scan(&rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to scan room: %w", err)
	}

	return rm, nil
}

func (r repo) GetRoomIDByCode(ctx context.Context, code string) (string, error) {
	funcName := "room.redis.GetRoomIDByCode"
	slog.DebugContext(ctx, funcName, "code", code)

	roomID, err := r.rc.Get(ctx, r.getRoomCodeKey(code)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", room.ErrRoomNotFound
		}
		return "", fmt.Errorf("failed to get room id by code: %w", err)
	}

	return roomID, nil
}

func (r repo) UpdateRoomLocked(ctx context.Context, roomID string, locked bool) error {
	funcName := "room.redis.UpdateRoomLocked"
	slog.DebugContext(ctx, funcName, "roomID", roomID, "locked", locked)

	return r.updateRoomField(ctx, roomID, "locked", locked)
}

func (r repo) UpdateRoomVideoURL(ctx context.Context, roomID string, videoURL string) error {
	funcName := "room.redis.UpdateRoomVideoURL"
	slog.DebugContext(ctx, funcName, "roomID", roomID, "videoURL", videoURL)

	return r.updateRoomField(ctx, roomID, "video_url", videoURL)
}

func (r repo) updateRoomField(ctx context.Context, roomID string, field string, value any) error {
	key := r.getRoomKey(roomID)
	cmd := r.rc.Exists(ctx, key)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

// RemoveRoom deletes the room hash, its code index entry, and every
// room-scoped key (playback state, member list, chat, reactions, presence).
// Member hashes are removed by the service before this is called.
func (r repo) RemoveRoom(ctx context.Context, roomID string) error {
	funcName := "room.redis.RemoveRoom"
	slog.DebugContext(ctx, funcName, "roomID", roomID)

	rm, err := r.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx,
		r.getRoomKey(roomID),
		r.getRoomCodeKey(rm.Code),
		r.getPlaybackStateKey(roomID),
		r.getMemberListKey(roomID),
		r.getChatKey(roomID),
		r.getReactionsKey(roomID),
		r.getPresenceKey(roomID),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}
