package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/repository/connection"
	roomRepo "github.com/watchroom/server/internal/repository/room"
)

// getConnsByRoomID returns the connections of every member that is currently
// connected. Members without a live connection are skipped, not an error:
// a member row can outlive its connection.
func (s service) getConnsByRoomID(ctx context.Context, roomID string) ([]*websocket.Conn, error) {
	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	conns := make([]*websocket.Conn, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		conn, err := s.connRepo.GetConn(memberID)
		if err != nil {
			if errors.Is(err, connection.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get conn: %w", err)
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

// checkIfMemberHost is the authorization boundary for every host-only
// mutation. The caller's role claim is never trusted; the stored member row
// decides.
func (s service) checkIfMemberHost(ctx context.Context, roomID, memberID string) error {
	isHost, err := s.roomRepo.IsMemberHost(ctx, &roomRepo.GetMemberParams{
		MemberID: memberID,
		RoomID:   roomID,
	})
	if err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to check if member is host: %w", err)
	}

	if !isHost {
		return ErrPermissionDenied
	}

	return nil
}

// getMembers returns the member list in join order with presence merged in.
func (s service) getMembers(ctx context.Context, roomID string) ([]Member, error) {
	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	onlineIDs, err := s.roomRepo.GetOnlineMemberIDs(ctx, &roomRepo.GetOnlineMemberIDsParams{
		Since:  time.Now().Add(-s.presenceWindow),
		RoomID: roomID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get online member ids: %w", err)
	}

	online := make(map[string]struct{}, len(onlineIDs))
	for _, id := range onlineIDs {
		online[id] = struct{}{}
	}

	members := make([]Member, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		member, err := s.roomRepo.GetMember(ctx, &roomRepo.GetMemberParams{
			MemberID: memberID,
			RoomID:   roomID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		_, isOnline := online[memberID]
		members = append(members, Member{
			ID:       memberID,
			Username: member.Username,
			IsHost:   member.IsHost,
			IsOnline: isOnline,
		})
	}

	return members, nil
}

func (s service) nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
