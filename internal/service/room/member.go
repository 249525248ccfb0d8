package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/broadcast"
	roomRepo "github.com/watchroom/server/internal/repository/room"
)

type GetMemberParams struct {
	MemberID string
	RoomID   string
}

// GetMember resolves a claimed member identity against the stored member row.
// The gateway uses it to reject unknown ids before upgrading a connection.
func (s service) GetMember(ctx context.Context, params *GetMemberParams) (Member, error) {
	member, err := s.roomRepo.GetMember(ctx, &roomRepo.GetMemberParams{
		MemberID: params.MemberID,
		RoomID:   params.RoomID,
	})
	if err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, fmt.Errorf("failed to get member: %w", err)
	}

	return Member{
		ID:       params.MemberID,
		Username: member.Username,
		IsHost:   member.IsHost,
	}, nil
}

type LeaveRoomParams struct {
	MemberID string
	RoomID   string
}

type LeaveRoomResponse struct {
	// IsRoomClosed is true when the leaving member was the host: the room is
	// destroyed for everyone, not just the leaver.
	IsRoomClosed bool
	Members      []Member
	Conns        []*websocket.Conn
}

func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	member, err := s.roomRepo.GetMember(ctx, &roomRepo.GetMemberParams{
		MemberID: params.MemberID,
		RoomID:   params.RoomID,
	})
	if err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return LeaveRoomResponse{}, ErrMemberNotFound
		}
		return LeaveRoomResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	if member.IsHost {
		conns, err := s.closeRoom(ctx, params.RoomID)
		if err != nil {
			return LeaveRoomResponse{}, err
		}

		return LeaveRoomResponse{
			IsRoomClosed: true,
			Conns:        conns,
		}, nil
	}

	if err := s.removeMember(ctx, params.RoomID, params.MemberID); err != nil {
		return LeaveRoomResponse{}, err
	}

	members, err := s.getMembers(ctx, params.RoomID)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID: params.RoomID,
		Type:   broadcast.EventMembershipChanged,
		Payload: MembershipChangedPayload{
			LeftMemberID: params.MemberID,
			Members:      members,
		},
	})

	return LeaveRoomResponse{
		Members: members,
		Conns:   conns,
	}, nil
}

type KickMemberParams struct {
	TargetID string
	SenderID string
	RoomID   string
}

type KickMemberResponse struct {
	// TargetConn is the ejected member's connection, nil if it was not
	// connected. The gateway closes it with the kick close code so the client
	// lands in its removed state, not the room-closed one.
	TargetConn *websocket.Conn
	Members    []Member
	Conns      []*websocket.Conn
}

func (s service) KickMember(ctx context.Context, params *KickMemberParams) (KickMemberResponse, error) {
	if err := s.checkIfMemberHost(ctx, params.RoomID, params.SenderID); err != nil {
		return KickMemberResponse{}, err
	}

	target, err := s.roomRepo.GetMember(ctx, &roomRepo.GetMemberParams{
		MemberID: params.TargetID,
		RoomID:   params.RoomID,
	})
	if err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return KickMemberResponse{}, ErrMemberNotFound
		}
		return KickMemberResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	// the host cannot kick itself; leaving as host closes the room instead
	if target.IsHost {
		return KickMemberResponse{}, ErrPermissionDenied
	}

	if err := s.removeMember(ctx, params.RoomID, params.TargetID); err != nil {
		return KickMemberResponse{}, err
	}

	targetConn, err := s.connRepo.RemoveByMemberID(params.TargetID)
	if err != nil {
		s.logger.DebugContext(ctx, "kicked member had no conn", "member_id", params.TargetID)
		targetConn = nil
	}

	members, err := s.getMembers(ctx, params.RoomID)
	if err != nil {
		return KickMemberResponse{}, err
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return KickMemberResponse{}, err
	}

	s.broadcaster.Publish(broadcast.Event{
		RoomID: params.RoomID,
		Type:   broadcast.EventMembershipChanged,
		Payload: MembershipChangedPayload{
			KickedMemberID: params.TargetID,
			Members:        members,
		},
	})

	return KickMemberResponse{
		TargetConn: targetConn,
		Members:    members,
		Conns:      conns,
	}, nil
}

func (s service) removeMember(ctx context.Context, roomID, memberID string) error {
	if err := s.roomRepo.RemoveMember(ctx, &roomRepo.RemoveMemberParams{
		MemberID: memberID,
		RoomID:   roomID,
	}); err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if err := s.roomRepo.RemovePresence(ctx, roomID, memberID); err != nil {
		s.logger.InfoContext(ctx, "failed to remove presence", "member_id", memberID, "error", err)
	}

	return nil
}

type ConnectMemberParams struct {
	Conn     *websocket.Conn
	MemberID string
}

func (s service) ConnectMember(ctx context.Context, params *ConnectMemberParams) error {
	if err := s.connRepo.Add(params.Conn, params.MemberID); err != nil {
		return fmt.Errorf("failed to connect member: %w", err)
	}

	return nil
}

type DisconnectMemberParams struct {
	Conn *websocket.Conn
}

// DisconnectMember handles a silent drop (tab closed, network lost). The
// member row survives so the client can resume; only the connection and the
// presence signal go away.
func (s service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) error {
	if _, err := s.connRepo.RemoveByConn(params.Conn); err != nil {
		return fmt.Errorf("failed to remove conn: %w", err)
	}

	return nil
}
