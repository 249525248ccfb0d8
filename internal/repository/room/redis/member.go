package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getMemberKey(roomID, memberID string) string {
	return "room:" + roomID + ":member:" + memberID
}

func (r repo) getMemberListKey(roomID string) string {
	return "room:" + roomID + ":memberlist"
}

func (r repo) SetMember(ctx context.Context, params *room.SetMemberParams) error {
	funcName := "room.redis.SetMember"
	slog.DebugContext(ctx, funcName, "params", params)

	memberKey := r.getMemberKey(params.RoomID, params.MemberID)
	memberListKey := r.getMemberListKey(params.RoomID)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, memberKey,
		"username", params.Username,
		"is_host", params.IsHost,
		"user_id", params.UserID,
		"room_id", params.RoomID,
	)
	pipe.Expire(ctx, memberKey, r.keyTTL)
	pipe.Expire(ctx, memberListKey, r.keyTTL)
	if err := r.addWithIncrement(ctx, pipe, memberListKey, params.MemberID); err != nil {
		return fmt.Errorf("failed to add member to list: %w", err)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set member: %w", err)
	}

	return nil
}

func (r repo) GetMember(ctx context.Context, params *room.GetMemberParams) (room.Member, error) {
	funcName := "room.redis.GetMember"
	slog.DebugContext(ctx, funcName, "params", params)

	cmd := r.rc.HGetAll(ctx, r.getMemberKey(params.RoomID, params.MemberID))
	if err := cmd.Err(); err != nil {
		return room.Member{}, fmt.Errorf("failed to get member: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return room.Member{}, room.ErrMemberNotFound
	}

	var member room.Member
	if err := cmd.Scan(&member); err != nil {
		return room.Member{}, fmt.Errorf("failed to scan member: %w", err)
	}

	return member, nil
}

// GetMemberIDs returns member ids in join order.
func (r repo) GetMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	funcName := "room.redis.GetMemberIDs"
	slog.DebugContext(ctx, funcName, "roomID", roomID)

	memberIDs, err := r.rc.ZRange(ctx, r.getMemberListKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	return memberIDs, nil
}

func (r repo) IsMemberHost(ctx context.Context, params *room.GetMemberParams) (bool, error) {
	funcName := "room.redis.IsMemberHost"
	slog.DebugContext(ctx, funcName, "params", params)

	cmd := r.rc.HGet(ctx, r.getMemberKey(params.RoomID, params.MemberID), "is_host")
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			return false, room.ErrMemberNotFound
		}
		return false, fmt.Errorf("failed to get member is_host: %w", err)
	}

	isHost, err := cmd.Bool()
	if err != nil {
		return false, fmt.Errorf("failed to parse member is_host: %w", err)
	}

	return isHost, nil
}

func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	funcName := "room.redis.RemoveMember"
	slog.DebugContext(ctx, funcName, "params", params)

	res, err := r.rc.ZRem(ctx, r.getMemberListKey(params.RoomID), params.MemberID).Result()
	if err != nil {
		return fmt.Errorf("failed to remove member from list: %w", err)
	}

	if res == 0 {
		return room.ErrMemberNotFound
	}

	if err := r.rc.Del(ctx, r.getMemberKey(params.RoomID, params.MemberID)).Err(); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}
