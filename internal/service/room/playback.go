package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/broadcast"
	roomRepo "github.com/watchroom/server/internal/repository/room"
)

type SetPlaybackParams struct {
	// Nil fields keep their stored value.
	IsPlaying *bool
	Position  *float64
	SenderID  string
	RoomID    string
}

type SetPlaybackResponse struct {
	Playback PlaybackState
	Conns    []*websocket.Conn
}

// SetPlayback writes the authoritative playback tuple and fans it out.
// Host-only: a non-host caller gets ErrPermissionDenied and no write happens,
// regardless of what role the caller claims to hold. The stored updated_at is
// forced strictly above its previous value, so a viewer can always use it as
// a logical version to discard re-delivered or reordered states.
func (s service) SetPlayback(ctx context.Context, params *SetPlaybackParams) (SetPlaybackResponse, error) {
	if err := s.checkIfMemberHost(ctx, params.RoomID, params.SenderID); err != nil {
		return SetPlaybackResponse{}, err
	}

	updatedAt, err := s.roomRepo.UpdatePlaybackState(ctx, &roomRepo.UpdatePlaybackStateParams{
		IsPlaying: params.IsPlaying,
		Position:  params.Position,
		UpdatedAt: s.nowUnixMilli(),
		RoomID:    params.RoomID,
	})
	if err != nil {
		if errors.Is(err, roomRepo.ErrPlaybackStateNotFound) {
			return SetPlaybackResponse{}, ErrRoomNotFound
		}
		return SetPlaybackResponse{}, fmt.Errorf("failed to update playback state: %w", err)
	}

	stored, err := s.roomRepo.GetPlaybackState(ctx, params.RoomID)
	if err != nil {
		return SetPlaybackResponse{}, fmt.Errorf("failed to get playback state: %w", err)
	}

	playback := PlaybackState{
		IsPlaying: stored.IsPlaying,
		Position:  stored.Position,
		UpdatedAt: updatedAt,
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return SetPlaybackResponse{}, err
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID:  params.RoomID,
		Type:    broadcast.EventPlaybackChanged,
		Payload: playback,
	})

	return SetPlaybackResponse{
		Playback: playback,
		Conns:    conns,
	}, nil
}

type GetPlaybackParams struct {
	RoomID string
}

func (s service) GetPlayback(ctx context.Context, params *GetPlaybackParams) (PlaybackState, error) {
	stored, err := s.roomRepo.GetPlaybackState(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, roomRepo.ErrPlaybackStateNotFound) {
			return PlaybackState{}, ErrRoomNotFound
		}
		return PlaybackState{}, fmt.Errorf("failed to get playback state: %w", err)
	}

	return PlaybackState(stored), nil
}
