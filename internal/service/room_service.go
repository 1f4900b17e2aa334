package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/database"
	"github.com/happy-game/sync-player/internal/errs"
	"github.com/happy-game/sync-player/internal/model"
)

// RoomService covers the room and membership request/response operations.
// The sync core consumes it only through presence and the playlist switch.
type RoomService struct {
	store *database.Store
	log   *zap.Logger
}

// NewRoomService creates the room service.
func NewRoomService(store *database.Store, log *zap.Logger) *RoomService {
	return &RoomService{store: store, log: log}
}

// Create creates a room, or returns the existing room with the same name.
func (s *RoomService) Create(name, password string) (*model.Room, error) {
	existing, err := s.store.GetRoomByName(name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errs.ErrRoomNotFound) {
		return nil, err
	}
	var pw *string
	if password != "" {
		pw = &password
	}
	room, err := s.store.CreateRoom(name, pw)
	if err != nil {
		return nil, err
	}
	s.log.Info("room created", zap.Uint("room_id", room.ID), zap.String("name", name))
	return room, nil
}

// QueryByName returns a room by its name.
func (s *RoomService) QueryByName(name string) (*model.Room, error) {
	return s.store.GetRoomByName(name)
}

// Join adds a user to a room after checking the shared room password.
func (s *RoomService) Join(roomID, userID uint, password string) error {
	if _, err := s.store.GetUserByID(userID); err != nil {
		return err
	}
	room, err := s.store.GetRoomByID(roomID)
	if err != nil {
		return err
	}
	if room.Password != nil && *room.Password != password {
		return errs.ErrInvalidPassword
	}
	member, err := s.store.GetRoomMember(roomID, userID)
	if err != nil {
		return err
	}
	if member != nil {
		return errs.ErrAlreadyInRoom
	}
	if _, err := s.store.AddRoomMember(roomID, userID, false); err != nil {
		return err
	}
	s.log.Info("user joined room", zap.Uint("room_id", roomID), zap.Uint("user_id", userID))
	return nil
}

// Leave removes a user from a room. The room play status is kept even when
// the last member leaves, so a returning member resumes where the room
// stopped.
func (s *RoomService) Leave(roomID, userID uint) error {
	member, err := s.store.GetRoomMember(roomID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return errs.ErrUserNotFound
	}
	if err := s.store.RemoveRoomMember(roomID, userID); err != nil {
		return err
	}
	s.log.Info("user left room", zap.Uint("room_id", roomID), zap.Uint("user_id", userID))
	return nil
}

// OnlineUsers lists the members currently online in a room.
func (s *RoomService) OnlineUsers(roomID uint) ([]model.OnlineUser, error) {
	return s.store.GetOnlineUsers(roomID)
}

// UserService covers login and user queries.
type UserService struct {
	store *database.Store
	log   *zap.Logger
}

// NewUserService creates the user service.
func NewUserService(store *database.Store, log *zap.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// Login returns the user for the username, creating it on first login.
func (s *UserService) Login(username string) (*model.User, error) {
	user, err := s.store.GetOrCreateUser(username)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("username", username))
	return user, nil
}

// Query returns a user by id.
func (s *UserService) Query(userID uint) (*model.User, error) {
	return s.store.GetUserByID(userID)
}
