package model

import (
	"time"

	"gorm.io/gorm"
)

// Room is a shared viewing session (GORM entity).
type Room struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string         `gorm:"type:varchar(100);not null;index" json:"name"`
	Password       *string        `gorm:"type:varchar(255)" json:"-"`
	CreatedTime    time.Time      `gorm:"not null;autoCreateTime:milli" json:"createdTime"`
	LastActiveTime time.Time      `gorm:"not null;autoUpdateTime:milli" json:"lastActiveTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Room) TableName() string { return "rooms" }

// User is a registered user (GORM entity).
type User struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	CreatedTime    time.Time      `gorm:"not null;autoCreateTime:milli" json:"createdTime"`
	LastActiveTime time.Time      `gorm:"not null;autoUpdateTime:milli" json:"lastActiveTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// RoomMember links a user to a room and tracks presence.
type RoomMember struct {
	ID      uint `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID  uint `gorm:"not null;index" json:"roomId"`
	UserID  uint `gorm:"not null;index" json:"userId"`
	IsAdmin bool `gorm:"default:false" json:"isAdmin"`
	Online  bool `gorm:"default:false" json:"online"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

func (RoomMember) TableName() string { return "room_members" }

// PlayState is the lifecycle state of a playlist item. Transitions are
// one-directional: new -> playing -> finished.
type PlayState string

const (
	PlayStateNew      PlayState = "new"
	PlayStatePlaying  PlayState = "playing"
	PlayStateFinished PlayState = "finished"
)

// PlaylistItem is one entry in a room playlist.
type PlaylistItem struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID      uint           `gorm:"not null;index" json:"roomId"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	OrderIndex  int            `gorm:"not null" json:"orderIndex"`
	PlayStatus  PlayState      `gorm:"type:varchar(20);not null;default:'new'" json:"playStatus"`
	CreatedTime time.Time      `gorm:"not null;autoCreateTime:milli" json:"createdTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	VideoSources []VideoSource `gorm:"foreignKey:PlaylistItemID" json:"videoSources,omitempty"`
}

func (PlaylistItem) TableName() string { return "playlist_items" }

// VideoSource is one playable URL for a playlist item.
type VideoSource struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	PlaylistItemID uint           `gorm:"not null;index" json:"playlistItemId"`
	URL            string         `gorm:"type:varchar(2048);not null" json:"url"`
	Label          string         `gorm:"type:varchar(100)" json:"label"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (VideoSource) TableName() string { return "video_sources" }

// RoomPlayStatus is the authoritative playback state of a room.
// Time is the position in seconds as of Timestamp (unix milliseconds);
// while not paused the current position is Time + (now-Timestamp)/1000.
type RoomPlayStatus struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    uint           `gorm:"not null;uniqueIndex" json:"roomId"`
	Paused    bool           `gorm:"default:false" json:"paused"`
	Time      float64        `gorm:"default:0" json:"time"`
	Timestamp int64          `gorm:"default:0" json:"timestamp"`
	VideoID   uint           `gorm:"default:0" json:"videoId"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (RoomPlayStatus) TableName() string { return "room_play_status" }
