package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getPlaybackStateKey(roomID string) string {
	return "room:" + roomID + ":playback"
}

func (r repo) SetPlaybackState(ctx context.Context, params *room.SetPlaybackStateParams) error {
	funcName := "room.redis.SetPlaybackState"
	slog.DebugContext(ctx, funcName, "params", params)

	key := r.getPlaybackStateKey(params.RoomID)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, key,
		"is_playing", params.IsPlaying,
		"position", params.Position,
		"updated_at", params.UpdatedAt,
	)
	pipe.Expire(ctx, key, r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set playback state: %w", err)
	}

	return nil
}

func (r repo) GetPlaybackState(ctx context.Context, roomID string) (room.PlaybackState, error) {
	funcName := "room.redis.GetPlaybackState"
	slog.DebugContext(ctx, funcName, "roomID", roomID)

	cmd := r.rc.HGetAll(ctx, r.getPlaybackStateKey(roomID))
	if err := cmd.Err(); err != nil {
		return room.PlaybackState{}, fmt.Errorf("failed to get playback state: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return room.PlaybackState{}, room.ErrPlaybackStateNotFound
	}

	var state room.PlaybackState
	if err := cmd.Scan(&state); err != nil {
		return room.PlaybackState{}, fmt.Errorf("failed to scan playback state: %w", err)
	}

	return state, nil
}

// UpdatePlaybackState applies the non-nil fields and returns the updated_at
// the store actually wrote, which is strictly greater than the previous one
// even when the caller's timestamp is stale or duplicated.
func (r repo) UpdatePlaybackState(ctx context.Context, params *room.UpdatePlaybackStateParams) (int64, error) {
	funcName := "room.redis.UpdatePlaybackState"
	slog.DebugContext(ctx, funcName, "params", params)

	args := make([]any, 0, 5)
	args = append(args, params.UpdatedAt)
	if params.IsPlaying != nil {
		args = append(args, "is_playing", *params.IsPlaying)
	}
	if params.Position != nil {
		args = append(args, "position", *params.Position)
	}

	res, err := r.rc.EvalSha(ctx, r.monotonicUpdateScript, []string{r.getPlaybackStateKey(params.RoomID)}, args...).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to update playback state: %w", err)
	}

	if res < 0 {
		return 0, room.ErrPlaybackStateNotFound
	}

	return res, nil
}
