package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/broadcast"
	"github.com/watchroom/server/internal/repository/room"
	"github.com/watchroom/server/pkg/randstr"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomLocked        = errors.New("room is locked")
	ErrMemberNotFound    = errors.New("member not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrRoomCodeExhausted = errors.New("failed to generate an unused room code")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	GetRoomIDByCode(context.Context, string) (string, error)
	UpdateRoomLocked(ctx context.Context, roomID string, locked bool) error
	UpdateRoomVideoURL(ctx context.Context, roomID string, videoURL string) error
	RemoveRoom(context.Context, string) error
	// member
	SetMember(context.Context, *room.SetMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	GetMemberIDs(context.Context, string) ([]string, error)
	IsMemberHost(context.Context, *room.GetMemberParams) (bool, error)
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	// playback
	SetPlaybackState(context.Context, *room.SetPlaybackStateParams) error
	GetPlaybackState(context.Context, string) (room.PlaybackState, error)
	UpdatePlaybackState(context.Context, *room.UpdatePlaybackStateParams) (int64, error)
	// chat
	AddChatMessage(context.Context, *room.AddChatMessageParams) error
	GetChatMessages(ctx context.Context, roomID string, limit int) ([]room.ChatMessage, error)
	AddReaction(context.Context, *room.AddReactionParams) error
	// presence
	AnnouncePresence(context.Context, *room.AnnouncePresenceParams) error
	GetOnlineMemberIDs(context.Context, *room.GetOnlineMemberIDsParams) ([]string, error)
	RemovePresence(ctx context.Context, roomID string, memberID string) error
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByMemberID(string) (*websocket.Conn, error)
	RemoveByConn(*websocket.Conn) (string, error)
	GetConn(string) (*websocket.Conn, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	CodeLength       int
	CodeMaxAttempts  int
	PresenceWindow   time.Duration
	ChatHistoryLimit int
}

type service struct {
	roomRepo    iRoomRepo
	connRepo    iConnRepo
	broadcaster *broadcast.Broadcaster
	generator   iGenerator
	logger      *slog.Logger

	codeLength       int
	codeMaxAttempts  int
	presenceWindow   time.Duration
	chatHistoryLimit int
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, broadcaster *broadcast.Broadcaster, cfg *Config, logger *slog.Logger) *service {
	s := service{
		roomRepo:         roomRepo,
		connRepo:         connRepo,
		broadcaster:      broadcaster,
		logger:           logger,
		codeLength:       cfg.CodeLength,
		codeMaxAttempts:  cfg.CodeMaxAttempts,
		presenceWindow:   cfg.PresenceWindow,
		chatHistoryLimit: cfg.ChatHistoryLimit,
	}

	// unambiguous uppercase alphabet for room codes
	letterBytes := []byte("ABCDEFGHJKMNPQRSTUVWXYZ23456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
