package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getPresenceKey(roomID string) string {
	return "room:" + roomID + ":presence"
}

// AnnouncePresence records a liveness announcement. Re-announcing just moves
// the member's score forward; there is no explicit leave.
func (r repo) AnnouncePresence(ctx context.Context, params *room.AnnouncePresenceParams) error {
	funcName := "room.redis.AnnouncePresence"
	slog.DebugContext(ctx, funcName, "params", params)

	key := r.getPresenceKey(params.RoomID)
	pipe := r.rc.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(params.AnnouncedAt.Unix()),
		Member: params.MemberID,
	})
	pipe.Expire(ctx, key, r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to announce presence: %w", err)
	}

	return nil
}

// GetOnlineMemberIDs trims entries announced before params.Since and returns
// the ids that remain.
func (r repo) GetOnlineMemberIDs(ctx context.Context, params *room.GetOnlineMemberIDsParams) ([]string, error) {
	funcName := "room.redis.GetOnlineMemberIDs"
	slog.DebugContext(ctx, funcName, "params", params)

	key := r.getPresenceKey(params.RoomID)
	since := strconv.FormatInt(params.Since.Unix(), 10)

	if err := r.rc.ZRemRangeByScore(ctx, key, "-inf", "("+since).Err(); err != nil {
		return nil, fmt.Errorf("failed to trim presence: %w", err)
	}

	memberIDs, err := r.rc.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: since,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get online member ids: %w", err)
	}

	return memberIDs, nil
}

func (r repo) RemovePresence(ctx context.Context, roomID string, memberID string) error {
	funcName := "room.redis.RemovePresence"
	slog.DebugContext(ctx, funcName, "roomID", roomID, "memberID", memberID)

	if err := r.rc.ZRem(ctx, r.getPresenceKey(roomID), memberID).Err(); err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}

	return nil
}
