package controller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	// presence
	mux.Handle("ALIVE", handler(c, c.handleAlive))

	// playback (host-only, enforced by the service)
	mux.Handle("SET_PLAYBACK", handler(c, c.handleSetPlayback))
	mux.Handle("SET_VIDEO", handler(c, c.handleSetVideo))

	// room
	mux.Handle("TOGGLE_LOCK", handler(c, c.handleToggleLock))
	mux.Handle("LEAVE_ROOM", handler(c, c.handleLeaveRoom))

	// member
	mux.Handle("KICK_MEMBER", handler(c, c.handleKickMember))

	// chat
	mux.Handle("SEND_CHAT", handler(c, c.handleSendChat))
	mux.Handle("SEND_REACTION", handler(c, c.handleSendReaction))

	return mux
}

// handler adapts a typed message handler to the router. A host-only command
// from a non-host is dropped without any reply or broadcast.
func handler[T any](c controller, fn func(context.Context, *websocket.Conn, T) error) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				c.logger.InfoContext(ctx, "failed to unmarshal payload",
					"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
					"error", err,
				)
				return nil
			}
		}

		if err := fn(ctx, conn, input); err != nil {
			if errors.Is(err, room.ErrPermissionDenied) {
				c.logger.DebugContext(ctx, "unauthorized command ignored",
					"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
				)
				return nil
			}

			return err
		}

		return nil
	}
}
