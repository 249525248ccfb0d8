package room

import "errors"

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrRoomCodeTaken         = errors.New("room code already taken")
	ErrMemberNotFound        = errors.New("member not found")
	ErrPlaybackStateNotFound = errors.New("playback state not found")
)
