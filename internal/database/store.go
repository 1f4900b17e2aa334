package database

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/happy-game/sync-player/internal/errs"
	"github.com/happy-game/sync-player/internal/model"
)

// Store wraps the GORM connection with the queries the services consume.
// It is passed by injection; there is no package-level connection.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on an open connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for transactions.
func (s *Store) DB() *gorm.DB { return s.db }

// --- play status ---

// GetPlayStatus returns the authoritative play status of a room.
func (s *Store) GetPlayStatus(roomID uint) (*model.RoomPlayStatus, error) {
	var status model.RoomPlayStatus
	if err := s.db.Where("room_id = ?", roomID).First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrPlayStatusNotFound
		}
		return nil, err
	}
	return &status, nil
}

// CreatePlayStatus creates the play status row for a room.
func (s *Store) CreatePlayStatus(roomID uint, paused bool, playTime float64, timestamp int64, videoID uint) error {
	status := &model.RoomPlayStatus{
		RoomID:    roomID,
		Paused:    paused,
		Time:      playTime,
		Timestamp: timestamp,
		VideoID:   videoID,
	}
	return s.db.Create(status).Error
}

// UpdatePlayStatus overwrites the given columns of a room's play status.
func (s *Store) UpdatePlayStatus(roomID uint, fields map[string]any) error {
	return s.db.Model(&model.RoomPlayStatus{}).
		Where("room_id = ?", roomID).
		Updates(fields).Error
}

// DeletePlayStatus removes a room's play status row.
func (s *Store) DeletePlayStatus(roomID uint) error {
	return s.db.Where("room_id = ?", roomID).Delete(&model.RoomPlayStatus{}).Error
}

// --- playlist ---

// AddPlaylistItem appends an item to the room playlist. The new item gets
// orderIndex = max(existing)+1, or 0 for an empty room.
func (s *Store) AddPlaylistItem(roomID uint, title string, sources []model.VideoSourceInput) (uint, error) {
	var itemID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var maxOrderIndex *int
		if err := tx.Model(&model.PlaylistItem{}).
			Where("room_id = ?", roomID).
			Select("MAX(order_index)").
			Scan(&maxOrderIndex).Error; err != nil {
			return err
		}
		orderIndex := 0
		if maxOrderIndex != nil {
			orderIndex = *maxOrderIndex + 1
		}

		item := &model.PlaylistItem{
			RoomID:     roomID,
			Title:      title,
			OrderIndex: orderIndex,
			PlayStatus: model.PlayStateNew,
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		for _, src := range sources {
			source := &model.VideoSource{
				PlaylistItemID: item.ID,
				URL:            strings.TrimSpace(src.URL),
				Label:          src.Label,
			}
			if err := tx.Create(source).Error; err != nil {
				return err
			}
		}
		itemID = item.ID
		return nil
	})
	return itemID, err
}

// QueryPlaylistItems returns items for a room ordered by orderIndex, with
// optional id and play-state filters.
func (s *Store) QueryPlaylistItems(roomID uint, itemID *uint, state *model.PlayState) ([]model.PlaylistItem, error) {
	query := s.db.Where("room_id = ?", roomID)
	if itemID != nil {
		query = query.Where("id = ?", *itemID)
	}
	if state != nil {
		query = query.Where("play_status = ?", *state)
	}
	var items []model.PlaylistItem
	if err := query.Preload("VideoSources").Order("order_index ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetPlaylistItem returns one item by id, scoped to the room.
func (s *Store) GetPlaylistItem(roomID, itemID uint) (*model.PlaylistItem, error) {
	var item model.PlaylistItem
	err := s.db.Where("room_id = ? AND id = ?", roomID, itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrPlaylistItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// DeletePlaylistItem deletes an item and its video sources.
func (s *Store) DeletePlaylistItem(itemID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_item_id = ?", itemID).Delete(&model.VideoSource{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PlaylistItem{}, itemID).Error
	})
}

// ClearPlaylist deletes every item in the room playlist.
func (s *Store) ClearPlaylist(roomID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var itemIDs []uint
		if err := tx.Model(&model.PlaylistItem{}).
			Where("room_id = ?", roomID).
			Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if len(itemIDs) > 0 {
			if err := tx.Where("playlist_item_id IN ?", itemIDs).Delete(&model.VideoSource{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("room_id = ?", roomID).Delete(&model.PlaylistItem{}).Error
	})
}

// UpdateOrderIndexes applies a batch of orderIndex assignments in one
// transaction. Reordering is a value exchange on the items, so applying the
// same swap twice restores the original order.
func (s *Store) UpdateOrderIndexes(updates []model.OrderIndexUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&model.PlaylistItem{}).
				Where("id = ?", u.PlaylistItemID).
				Update("order_index", u.OrderIndex).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetPlayState updates the lifecycle state of one playlist item.
func (s *Store) SetPlayState(itemID uint, state model.PlayState) error {
	return s.db.Model(&model.PlaylistItem{}).
		Where("id = ?", itemID).
		Update("play_status", state).Error
}

// --- rooms and users ---

// CreateRoom creates a room. Password is stored as given; room passwords are
// shared secrets, not credentials.
func (s *Store) CreateRoom(name string, password *string) (*model.Room, error) {
	room := &model.Room{Name: name, Password: password}
	if err := s.db.Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoomByName returns a room by its name.
func (s *Store) GetRoomByName(name string) (*model.Room, error) {
	var room model.Room
	if err := s.db.Where("name = ?", name).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetRoomByID returns a room by id.
func (s *Store) GetRoomByID(roomID uint) (*model.Room, error) {
	var room model.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetOrCreateUser returns the user with the given username, creating it on
// first login.
func (s *Store) GetOrCreateUser(username string) (*model.User, error) {
	var user model.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err == nil {
		s.db.Model(&user).Update("last_active_time", time.Now())
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user = model.User{Username: username}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID returns a user by id.
func (s *Store) GetUserByID(userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// --- room members / presence ---

// AddRoomMember adds a user to a room.
func (s *Store) AddRoomMember(roomID, userID uint, isAdmin bool) (*model.RoomMember, error) {
	member := &model.RoomMember{RoomID: roomID, UserID: userID, IsAdmin: isAdmin}
	if err := s.db.Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// GetRoomMember returns the membership row for (roomID, userID), or nil when
// the user is not a member.
func (s *Store) GetRoomMember(roomID, userID uint) (*model.RoomMember, error) {
	var member model.RoomMember
	err := s.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// RemoveRoomMember removes a user from a room.
func (s *Store) RemoveRoomMember(roomID, userID uint) error {
	return s.db.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&model.RoomMember{}).Error
}

// SetMemberOnline flips the presence flag for a member. Called by the
// transport on connect and disconnect.
func (s *Store) SetMemberOnline(roomID, userID uint, online bool) error {
	return s.db.Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("online", online).Error
}

// GetOnlineUsers lists members currently marked online in a room.
func (s *Store) GetOnlineUsers(roomID uint) ([]model.OnlineUser, error) {
	var members []model.RoomMember
	err := s.db.Where("room_id = ? AND online = ?", roomID, true).
		Preload("User").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	users := make([]model.OnlineUser, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		users = append(users, model.OnlineUser{
			ID:       m.UserID,
			Username: m.User.Username,
			Online:   m.Online,
			IsAdmin:  m.IsAdmin,
		})
	}
	return users, nil
}
