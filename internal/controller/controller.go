package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/validator"
)

// websocket close codes for the two distinguishable terminal outcomes.
// An ordinary disconnect has no special code: the session stays resumable.
const (
	closeCodeRoomClosed = 4000
	closeCodeKicked     = 4001
)

var ErrValidationError = errors.New("validation error")

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	GetRoomState(context.Context, *room.GetRoomStateParams) (room.GetRoomStateResponse, error)
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	SetPlayback(context.Context, *room.SetPlaybackParams) (room.SetPlaybackResponse, error)
	SetVideo(context.Context, *room.SetVideoParams) (room.SetVideoResponse, error)
	ToggleLock(context.Context, *room.ToggleLockParams) (room.ToggleLockResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	KickMember(context.Context, *room.KickMemberParams) (room.KickMemberResponse, error)
	SendChat(context.Context, *room.SendChatParams) (room.SendChatResponse, error)
	SendReaction(context.Context, *room.SendReactionParams) (room.SendReactionResponse, error)
	AnnouncePresence(context.Context, *room.AnnouncePresenceParams) error
	ConnectMember(context.Context, *room.ConnectMemberParams) error
	DisconnectMember(context.Context, *room.DisconnectMemberParams) error
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
}
