package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/watchroom/server/internal/broadcast"
	roomRepo "github.com/watchroom/server/internal/repository/room"
)

type SendChatParams struct {
	Text     string
	SenderID string
	RoomID   string
}

type SendChatResponse struct {
	Message ChatMessage
	Conns   []*websocket.Conn
}

// SendChat is pure create+broadcast: append the record and fan it out over
// the same room-scoped primitive the playback events use. No reconciliation,
// ulids keep the history sortable by creation.
func (s service) SendChat(ctx context.Context, params *SendChatParams) (SendChatResponse, error) {
	sender, err := s.roomRepo.GetMember(ctx, &roomRepo.GetMemberParams{
		MemberID: params.SenderID,
		RoomID:   params.RoomID,
	})
	if err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return SendChatResponse{}, ErrMemberNotFound
		}
		return SendChatResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	message := ChatMessage{
		ID:        ulid.Make().String(),
		MemberID:  params.SenderID,
		Username:  sender.Username,
		Text:      params.Text,
		CreatedAt: s.nowUnixMilli(),
	}

	if err := s.roomRepo.AddChatMessage(ctx, &roomRepo.AddChatMessageParams{
		Message: roomRepo.ChatMessage(message),
		RoomID:  params.RoomID,
	}); err != nil {
		return SendChatResponse{}, fmt.Errorf("failed to add chat message: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return SendChatResponse{}, err
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID:  params.RoomID,
		Type:    broadcast.EventChatPosted,
		Payload: message,
	})

	return SendChatResponse{
		Message: message,
		Conns:   conns,
	}, nil
}

type SendReactionParams struct {
	Emoji    string
	SenderID string
	RoomID   string
}

type SendReactionResponse struct {
	Reaction Reaction
	Conns    []*websocket.Conn
}

func (s service) SendReaction(ctx context.Context, params *SendReactionParams) (SendReactionResponse, error) {
	if _, err := s.roomRepo.GetMember(ctx, &roomRepo.GetMemberParams{
		MemberID: params.SenderID,
		RoomID:   params.RoomID,
	}); err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return SendReactionResponse{}, ErrMemberNotFound
		}
		return SendReactionResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	reaction := Reaction{
		ID:        ulid.Make().String(),
		MemberID:  params.SenderID,
		Emoji:     params.Emoji,
		CreatedAt: s.nowUnixMilli(),
	}

	if err := s.roomRepo.AddReaction(ctx, &roomRepo.AddReactionParams{
		Reaction: roomRepo.Reaction(reaction),
		RoomID:   params.RoomID,
	}); err != nil {
		return SendReactionResponse{}, fmt.Errorf("failed to add reaction: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return SendReactionResponse{}, err
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID:  params.RoomID,
		Type:    broadcast.EventReactionFired,
		Payload: reaction,
	})

	return SendReactionResponse{
		Reaction: reaction,
		Conns:    conns,
	}, nil
}
