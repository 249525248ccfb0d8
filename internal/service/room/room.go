package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/broadcast"
	roomRepo "github.com/watchroom/server/internal/repository/room"
)

type CreateRoomParams struct {
	RoomName string
	HostName string
	VideoURL string
}

type CreateRoomResponse struct {
	Room       Room
	HostMember Member
}

// CreateRoom allocates a room under a freshly generated unique code, creates
// the host member and initializes the playback state to paused at zero. Code
// collisions are retried with a new random code; running out of attempts is a
// capacity anomaly surfaced as ErrRoomCodeExhausted.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomID := uuid.NewString()

	var code string
	claimed := false
	for attempt := 0; attempt < s.codeMaxAttempts; attempt++ {
		code = s.generator.GenerateRandomString(s.codeLength)
		err := s.roomRepo.SetRoom(ctx, &roomRepo.SetRoomParams{
			RoomID:   roomID,
			Code:     code,
			Name:     params.RoomName,
			HostName: params.HostName,
			VideoURL: params.VideoURL,
			Locked:   false,
		})
		if err == nil {
			claimed = true
			break
		}
		if !errors.Is(err, roomRepo.ErrRoomCodeTaken) {
			return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
		}

		s.logger.InfoContext(ctx, "room code collision, retrying", "code", code)
	}
	if !claimed {
		return CreateRoomResponse{}, ErrRoomCodeExhausted
	}

	hostMemberID := uuid.NewString()
	if err := s.roomRepo.SetMember(ctx, &roomRepo.SetMemberParams{
		MemberID: hostMemberID,
		Username: params.HostName,
		IsHost:   true,
		RoomID:   roomID,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set host member: %w", err)
	}

	if err := s.roomRepo.SetPlaybackState(ctx, &roomRepo.SetPlaybackStateParams{
		IsPlaying: false,
		Position:  0,
		UpdatedAt: s.nowUnixMilli(),
		RoomID:    roomID,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set playback state: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomID, "code", code)

	return CreateRoomResponse{
		Room: Room{
			ID:       roomID,
			Code:     code,
			Name:     params.RoomName,
			HostName: params.HostName,
			VideoURL: params.VideoURL,
			Locked:   false,
		},
		HostMember: Member{
			ID:       hostMemberID,
			Username: params.HostName,
			IsHost:   true,
		},
	}, nil
}

type JoinRoomParams struct {
	Code     string
	Username string
}

type JoinRoomResponse struct {
	Room         Room
	JoinedMember Member
	Members      []Member
	Conns        []*websocket.Conn
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	roomID, err := s.roomRepo.GetRoomIDByCode(ctx, params.Code)
	if err != nil {
		if errors.Is(err, roomRepo.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to get room id by code: %w", err)
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, roomRepo.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.Locked {
		return JoinRoomResponse{}, ErrRoomLocked
	}

	memberID := uuid.NewString()
	if err := s.roomRepo.SetMember(ctx, &roomRepo.SetMemberParams{
		MemberID: memberID,
		Username: params.Username,
		IsHost:   false,
		RoomID:   roomID,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	members, err := s.getMembers(ctx, roomID)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	conns, err := s.getConnsByRoomID(ctx, roomID)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	joinedMember := Member{
		ID:       memberID,
		Username: params.Username,
		IsHost:   false,
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID: roomID,
		Type:   broadcast.EventMembershipChanged,
		Payload: MembershipChangedPayload{
			JoinedMember: &joinedMember,
			Members:      members,
		},
	})

	return JoinRoomResponse{
		Room: Room{
			ID:       roomID,
			Code:     rm.Code,
			Name:     rm.Name,
			HostName: rm.HostName,
			VideoURL: rm.VideoURL,
			Locked:   rm.Locked,
		},
		JoinedMember: joinedMember,
		Members:      members,
		Conns:        conns,
	}, nil
}

type GetRoomStateParams struct {
	RoomID string
}

type GetRoomStateResponse struct {
	Room     Room
	Members  []Member
	Playback PlaybackState
	Chat     []ChatMessage
}

// GetRoomState is the snapshot a client loads when it enters or reconnects:
// room row, member list with presence, authoritative playback state and
// recent chat history.
func (s service) GetRoomState(ctx context.Context, params *GetRoomStateParams) (GetRoomStateResponse, error) {
	rm, err := s.roomRepo.GetRoom(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, roomRepo.ErrRoomNotFound) {
			return GetRoomStateResponse{}, ErrRoomNotFound
		}
		return GetRoomStateResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	members, err := s.getMembers(ctx, params.RoomID)
	if err != nil {
		return GetRoomStateResponse{}, err
	}

	playback, err := s.roomRepo.GetPlaybackState(ctx, params.RoomID)
	if err != nil {
		return GetRoomStateResponse{}, fmt.Errorf("failed to get playback state: %w", err)
	}

	chat, err := s.roomRepo.GetChatMessages(ctx, params.RoomID, s.chatHistoryLimit)
	if err != nil {
		return GetRoomStateResponse{}, fmt.Errorf("failed to get chat messages: %w", err)
	}

	messages := make([]ChatMessage, 0, len(chat))
	for _, m := range chat {
		messages = append(messages, ChatMessage(m))
	}

	return GetRoomStateResponse{
		Room: Room{
			ID:       params.RoomID,
			Code:     rm.Code,
			Name:     rm.Name,
			HostName: rm.HostName,
			VideoURL: rm.VideoURL,
			Locked:   rm.Locked,
		},
		Members:  members,
		Playback: PlaybackState(playback),
		Chat:     messages,
	}, nil
}

type ToggleLockParams struct {
	SenderID string
	RoomID   string
}

type ToggleLockResponse struct {
	Locked bool
	Conns  []*websocket.Conn
}

func (s service) ToggleLock(ctx context.Context, params *ToggleLockParams) (ToggleLockResponse, error) {
	if err := s.checkIfMemberHost(ctx, params.RoomID, params.SenderID); err != nil {
		return ToggleLockResponse{}, err
	}

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, roomRepo.ErrRoomNotFound) {
			return ToggleLockResponse{}, ErrRoomNotFound
		}
		return ToggleLockResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	locked := !rm.Locked
	if err := s.roomRepo.UpdateRoomLocked(ctx, params.RoomID, locked); err != nil {
		return ToggleLockResponse{}, fmt.Errorf("failed to update room locked: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return ToggleLockResponse{}, err
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID:  params.RoomID,
		Type:    broadcast.EventRoomMutated,
		Payload: RoomMutatedPayload{Locked: &locked},
	})

	return ToggleLockResponse{
		Locked: locked,
		Conns:  conns,
	}, nil
}

type SetVideoParams struct {
	VideoURL string
	SenderID string
	RoomID   string
}

type SetVideoResponse struct {
	VideoURL string
	Playback PlaybackState
	Conns    []*websocket.Conn
}

// SetVideo swaps the room's current video reference and resets the playback
// state to paused at zero so every viewer starts the new video aligned.
func (s service) SetVideo(ctx context.Context, params *SetVideoParams) (SetVideoResponse, error) {
	if err := s.checkIfMemberHost(ctx, params.RoomID, params.SenderID); err != nil {
		return SetVideoResponse{}, err
	}

	if err := s.roomRepo.UpdateRoomVideoURL(ctx, params.RoomID, params.VideoURL); err != nil {
		if errors.Is(err, roomRepo.ErrRoomNotFound) {
			return SetVideoResponse{}, ErrRoomNotFound
		}
		return SetVideoResponse{}, fmt.Errorf("failed to update room video url: %w", err)
	}

	isPlaying := false
	position := 0.0
	updatedAt, err := s.roomRepo.UpdatePlaybackState(ctx, &roomRepo.UpdatePlaybackStateParams{
		IsPlaying: &isPlaying,
		Position:  &position,
		UpdatedAt: s.nowUnixMilli(),
		RoomID:    params.RoomID,
	})
	if err != nil {
		return SetVideoResponse{}, fmt.Errorf("failed to reset playback state: %w", err)
	}

	playback := PlaybackState{
		IsPlaying: isPlaying,
		Position:  position,
		UpdatedAt: updatedAt,
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return SetVideoResponse{}, err
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID:  params.RoomID,
		Type:    broadcast.EventRoomMutated,
		Payload: RoomMutatedPayload{VideoURL: &params.VideoURL},
	})
	s.broadcaster.Publish(broadcast.Event{
		RoomID:  params.RoomID,
		Type:    broadcast.EventPlaybackChanged,
		Payload: playback,
	})

	return SetVideoResponse{
		VideoURL: params.VideoURL,
		Playback: playback,
		Conns:    conns,
	}, nil
}

type CloseRoomParams struct {
	SenderID string
	RoomID   string
}

type CloseRoomResponse struct {
	Conns []*websocket.Conn
}

// CloseRoom is host-only. Destruction cascades to members, playback state,
// chat and presence, and every subscriber receives a terminal RoomDestroyed.
func (s service) CloseRoom(ctx context.Context, params *CloseRoomParams) (CloseRoomResponse, error) {
	if err := s.checkIfMemberHost(ctx, params.RoomID, params.SenderID); err != nil {
		return CloseRoomResponse{}, err
	}

	conns, err := s.closeRoom(ctx, params.RoomID)
	if err != nil {
		return CloseRoomResponse{}, err
	}

	return CloseRoomResponse{Conns: conns}, nil
}

func (s service) closeRoom(ctx context.Context, roomID string) ([]*websocket.Conn, error) {
	conns, err := s.getConnsByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	for _, memberID := range memberIDs {
		if err := s.roomRepo.RemoveMember(ctx, &roomRepo.RemoveMemberParams{
			MemberID: memberID,
			RoomID:   roomID,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to remove member", "member_id", memberID, "error", err)
		}
		if _, err := s.connRepo.RemoveByMemberID(memberID); err != nil {
			s.logger.DebugContext(ctx, "no conn to remove", "member_id", memberID)
		}
	}

	if err := s.roomRepo.RemoveRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("failed to remove room: %w", err)
	}

	s.logger.InfoContext(ctx, "room closed", "room_id", roomID)

	s.broadcaster.Publish(broadcast.Event{
		RoomID: roomID,
		Type:   broadcast.EventRoomDestroyed,
	})

	return conns, nil
}
