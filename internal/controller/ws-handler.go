package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
)

// connectRoom upgrades the connection and serves it until the client drops.
// The member-id query param is the client's remembered identity for this
// room; an unknown id is rejected before the upgrade.
func (c controller) connectRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")
	memberID := r.URL.Query().Get("member-id")
	if roomID == "" || memberID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := withRoomID(r.Context(), roomID)
	ctx = withMemberID(ctx, memberID)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomID))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("member_id", memberID))

	state, err := c.roomService.GetRoomState(ctx, &room.GetRoomStateParams{RoomID: roomID})
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// the claimed identity must be a member of this room; an unknown or
	// already removed id gets nothing, not even the upgrade
	if _, err := c.roomService.GetMember(ctx, &room.GetMemberParams{
		MemberID: memberID,
		RoomID:   roomID,
	}); err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}

	if err := c.roomService.ConnectMember(ctx, &room.ConnectMemberParams{
		Conn:     conn,
		MemberID: memberID,
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to connect member", "error", err)
		conn.Close()
		return
	}

	// initial snapshot so the client can seed its local player and the
	// duplicate/reorder guard before any live event arrives
	if err := c.writeToConn(ctx, conn, &Output{
		Type: "ROOM_STATE",
		Payload: map[string]any{
			"room":     state.Room,
			"members":  state.Members,
			"playback": state.Playback,
			"chat":     state.Chat,
		},
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to write room state", "error", err)
	}

	c.logger.InfoContext(ctx, "member connected")

	if err := c.getWSRouter().ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	// ordinary disconnect: member row survives, presence just ages out
	if err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{Conn: conn}); err != nil {
		c.logger.DebugContext(ctx, "failed to disconnect member", "error", err)
	}
	conn.Close()
}

type EmptyInput struct{}

func (c controller) handleAlive(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.roomService.AnnouncePresence(ctx, &room.AnnouncePresenceParams{
		MemberID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
}

type SetPlaybackInput struct {
	IsPlaying *bool    `json:"is_playing"`
	Position  *float64 `json:"position"`
}

func (c controller) handleSetPlayback(ctx context.Context, _ *websocket.Conn, input SetPlaybackInput) error {
	resp, err := c.roomService.SetPlayback(ctx, &room.SetPlaybackParams{
		IsPlaying: input.IsPlaying,
		Position:  input.Position,
		SenderID:  c.getMemberIDFromCtx(ctx),
		RoomID:    c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to set playback: %w", err)
	}

	if err := c.broadcastPlaybackUpdated(ctx, resp.Conns, &resp.Playback); err != nil {
		return fmt.Errorf("failed to broadcast playback updated: %w", err)
	}

	return nil
}

type SetVideoInput struct {
	VideoURL string `json:"video_url"`
}

func (c controller) handleSetVideo(ctx context.Context, _ *websocket.Conn, input SetVideoInput) error {
	resp, err := c.roomService.SetVideo(ctx, &room.SetVideoParams{
		VideoURL: input.VideoURL,
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to set video: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &Output{
		Type: "ROOM_UPDATED",
		Payload: map[string]any{
			"video_url": resp.VideoURL,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast room updated: %w", err)
	}

	if err := c.broadcastPlaybackUpdated(ctx, resp.Conns, &resp.Playback); err != nil {
		return fmt.Errorf("failed to broadcast playback updated: %w", err)
	}

	return nil
}

func (c controller) handleToggleLock(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	resp, err := c.roomService.ToggleLock(ctx, &room.ToggleLockParams{
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to toggle lock: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &Output{
		Type: "ROOM_UPDATED",
		Payload: map[string]any{
			"locked": resp.Locked,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast room updated: %w", err)
	}

	return nil
}

type KickMemberInput struct {
	MemberID string `json:"member_id"`
}

func (c controller) handleKickMember(ctx context.Context, _ *websocket.Conn, input KickMemberInput) error {
	if input.MemberID == "" {
		return fmt.Errorf("failed to kick member: %w", ErrValidationError)
	}

	resp, err := c.roomService.KickMember(ctx, &room.KickMemberParams{
		TargetID: input.MemberID,
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}

	// the ejected client observes the kick close code and lands in its
	// removed state, distinct from a room close
	if resp.TargetConn != nil {
		resp.TargetConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeCodeKicked, ""), time.Now().Add(5*time.Second))
		resp.TargetConn.Close()
	}

	if err := c.broadcastMembershipChanged(ctx, resp.Conns, &room.MembershipChangedPayload{
		KickedMemberID: input.MemberID,
		Members:        resp.Members,
	}); err != nil {
		return fmt.Errorf("failed to broadcast membership changed: %w", err)
	}

	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	resp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		MemberID: memberID,
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	if resp.IsRoomClosed {
		// host left: terminal for everyone
		if err := c.broadcast(ctx, resp.Conns, &Output{Type: "ROOM_CLOSED"}); err != nil {
			c.logger.InfoContext(ctx, "failed to broadcast room closed", "error", err)
		}
		for _, memberConn := range resp.Conns {
			memberConn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeCodeRoomClosed, ""), time.Now().Add(5*time.Second))
			memberConn.Close()
		}

		return nil
	}

	if err := c.broadcastMembershipChanged(ctx, resp.Conns, &room.MembershipChangedPayload{
		LeftMemberID: memberID,
		Members:      resp.Members,
	}); err != nil {
		return fmt.Errorf("failed to broadcast membership changed: %w", err)
	}

	return nil
}

type SendChatInput struct {
	Text string `json:"text"`
}

func (c controller) handleSendChat(ctx context.Context, _ *websocket.Conn, input SendChatInput) error {
	if input.Text == "" {
		return fmt.Errorf("failed to send chat: %w", ErrValidationError)
	}

	resp, err := c.roomService.SendChat(ctx, &room.SendChatParams{
		Text:     input.Text,
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to send chat: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &Output{
		Type:    "CHAT_POSTED",
		Payload: resp.Message,
	}); err != nil {
		return fmt.Errorf("failed to broadcast chat posted: %w", err)
	}

	return nil
}

type SendReactionInput struct {
	Emoji string `json:"emoji"`
}

func (c controller) handleSendReaction(ctx context.Context, _ *websocket.Conn, input SendReactionInput) error {
	if input.Emoji == "" {
		return fmt.Errorf("failed to send reaction: %w", ErrValidationError)
	}

	resp, err := c.roomService.SendReaction(ctx, &room.SendReactionParams{
		Emoji:    input.Emoji,
		SenderID: c.getMemberIDFromCtx(ctx),
		RoomID:   c.getRoomIDFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to send reaction: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &Output{
		Type:    "REACTION_FIRED",
		Payload: resp.Reaction,
	}); err != nil {
		return fmt.Errorf("failed to broadcast reaction fired: %w", err)
	}

	return nil
}
