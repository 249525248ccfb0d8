package controller

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) error {
	return conn.WriteJSON(output)
}

// broadcast is fire-and-forget per connection: a failed write is logged and
// skipped, the next state-changing event carries a fresher tuple anyway.
func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) error {
	for _, conn := range conns {
		if err := c.writeToConn(ctx, conn, output); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn",
				"output_type", output.Type,
				"error", err,
			)
		}
	}

	return nil
}

func (c controller) broadcastPlaybackUpdated(ctx context.Context, conns []*websocket.Conn, playback *room.PlaybackState) error {
	return c.broadcast(ctx, conns, &Output{
		Type:    "PLAYBACK_UPDATED",
		Payload: playback,
	})
}

func (c controller) broadcastMembershipChanged(ctx context.Context, conns []*websocket.Conn, payload *room.MembershipChangedPayload) error {
	return c.broadcast(ctx, conns, &Output{
		Type:    "MEMBERSHIP_CHANGED",
		Payload: payload,
	})
}
