package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getChatKey(roomID string) string {
	return "room:" + roomID + ":chat"
}

func (r repo) getReactionsKey(roomID string) string {
	return "room:" + roomID + ":reactions"
}

func (r repo) AddChatMessage(ctx context.Context, params *room.AddChatMessageParams) error {
	funcName := "room.redis.AddChatMessage"
	slog.DebugContext(ctx, funcName, "params", params)

	b, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	key := r.getChatKey(params.RoomID)
	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add chat message: %w", err)
	}

	return nil
}

// GetChatMessages returns the last limit messages in creation order.
// limit <= 0 returns the whole history.
func (r repo) GetChatMessages(ctx context.Context, roomID string, limit int) ([]room.ChatMessage, error) {
	funcName := "room.redis.GetChatMessages"
	slog.DebugContext(ctx, funcName, "roomID", roomID, "limit", limit)

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.rc.LRange(ctx, r.getChatKey(roomID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}

	messages := make([]room.ChatMessage, 0, len(raw))
	for _, v := range raw {
		var msg room.ChatMessage
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

func (r repo) AddReaction(ctx context.Context, params *room.AddReactionParams) error {
	funcName := "room.redis.AddReaction"
	slog.DebugContext(ctx, funcName, "params", params)

	b, err := json.Marshal(params.Reaction)
	if err != nil {
		return fmt.Errorf("failed to marshal reaction: %w", err)
	}

	key := r.getReactionsKey(params.RoomID)
	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}

	return nil
}
