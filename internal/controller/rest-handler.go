package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/rest"
)

type createRoomRequest struct {
	RoomName string `json:"room_name" validate:"required,max=64"`
	HostName string `json:"host_name" validate:"required,max=16"`
	VideoURL string `json:"video_url"`
}

type createRoomResponse struct {
	Room       room.Room   `json:"room"`
	HostMember room.Member `json:"host_member"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		RoomName: req.RoomName,
		HostName: req.HostName,
		VideoURL: req.VideoURL,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomCodeExhausted) {
			// rare collision exhaustion, the caller may simply retry
			rest.WriteJSON(w, http.StatusServiceUnavailable, rest.Envelope{"error": err.Error()})
			return
		}
		c.logger.ErrorContext(r.Context(), "failed to create room", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResponse{
		Room:       resp.Room,
		HostMember: resp.HostMember,
	}})
}

type joinRoomRequest struct {
	Username string `json:"username" validate:"required,max=16"`
}

type joinRoomResponse struct {
	Room         room.Room     `json:"room"`
	JoinedMember room.Member   `json:"joined_member"`
	Members      []room.Member `json:"members"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "room-code")
	if code == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	var req joinRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		Code:     code,
		Username: req.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		case errors.Is(err, room.ErrRoomLocked):
			rest.WriteJSON(w, http.StatusForbidden, rest.Envelope{"error": "room is locked"})
		default:
			c.logger.ErrorContext(r.Context(), "failed to join room", "error", err)
			rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		}
		return
	}

	c.broadcastMembershipChanged(r.Context(), resp.Conns, &room.MembershipChangedPayload{
		JoinedMember: &resp.JoinedMember,
		Members:      resp.Members,
	})

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": joinRoomResponse{
		Room:         resp.Room,
		JoinedMember: resp.JoinedMember,
		Members:      resp.Members,
	}})
}
