package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type WSRouter struct {
	routes map[string]HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// ServeConn reads messages from the connection and dispatches them by type
// until the connection fails or ctx is cancelled. The read error is returned
// so the caller can run its disconnect path.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			conn.WriteJSON(map[string]string{"error": fmt.Sprintf("unknown message type: %s", msg.Type)})
			continue
		}

		if err := handler(withMessageType(ctx, msg.Type), conn, msg.Payload); err != nil {
			slog.ErrorContext(ctx, "failed to handle message", "message_type", msg.Type, "error", err)
		}
	}
}
