package room

import (
	"context"
	"fmt"
	"time"

	roomRepo "github.com/watchroom/server/internal/repository/room"
)

type AnnouncePresenceParams struct {
	MemberID string
	RoomID   string
}

// AnnouncePresence records one liveness announcement. Fire-and-forget from
// the client's point of view: no announcement within the window means the
// member simply ages out of the online view, there is no explicit leave.
func (s service) AnnouncePresence(ctx context.Context, params *AnnouncePresenceParams) error {
	if err := s.roomRepo.AnnouncePresence(ctx, &roomRepo.AnnouncePresenceParams{
		MemberID:    params.MemberID,
		AnnouncedAt: time.Now(),
		RoomID:      params.RoomID,
	}); err != nil {
		return fmt.Errorf("failed to announce presence: %w", err)
	}

	return nil
}

type GetOnlineMembersParams struct {
	RoomID string
}

func (s service) GetOnlineMembers(ctx context.Context, params *GetOnlineMembersParams) ([]string, error) {
	onlineIDs, err := s.roomRepo.GetOnlineMemberIDs(ctx, &roomRepo.GetOnlineMemberIDsParams{
		Since:  time.Now().Add(-s.presenceWindow),
		RoomID: params.RoomID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get online member ids: %w", err)
	}

	return onlineIDs, nil
}
