package errs

import "errors"

// Domain sentinel errors for mapping to HTTP codes in handlers.
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrPlayStatusNotFound   = errors.New("play status not found")
	ErrPlaylistItemNotFound = errors.New("playlist item not found")
	ErrNothingToPlay        = errors.New("nothing to play")
	ErrInvalidPassword      = errors.New("invalid room password")
	ErrAlreadyInRoom        = errors.New("user is already in the room")
	ErrNotConnected         = errors.New("not connected")
)
