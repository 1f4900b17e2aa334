package model

// UserInfo identifies the caller's (room, user) pair. The server carries it
// in the userInfo cookie set at join; the client library sends the same
// shape with its HTTP sync writes.
type UserInfo struct {
	RoomID uint `json:"roomId"`
	UserID uint `json:"userId"`
}

// LoginRequest is the request body for POST /api/user/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}

// CreateRoomRequest is the request body for POST /api/room/create.
type CreateRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password"`
}

// JoinRoomRequest is the request body for POST /api/room/join.
type JoinRoomRequest struct {
	RoomID   uint   `json:"roomId" binding:"required"`
	UserID   uint   `json:"userId" binding:"required"`
	Password string `json:"password"`
}

// LeaveRoomRequest is the request body for POST /api/room/leave.
type LeaveRoomRequest struct {
	RoomID uint `json:"roomId" binding:"required"`
	UserID uint `json:"userId" binding:"required"`
}

// VideoSourceInput is one source URL in an add/update playlist request.
type VideoSourceInput struct {
	URL   string `json:"url" binding:"required"`
	Label string `json:"label"`
}

// AddPlaylistItemRequest is the request body for POST /api/playlist/add.
type AddPlaylistItemRequest struct {
	Title   string             `json:"title" binding:"required"`
	Sources []VideoSourceInput `json:"sources" binding:"required,min=1,dive"`
}

// OrderIndexUpdate assigns a new order index to one playlist item. A pairwise
// swap is two of these exchanging values.
type OrderIndexUpdate struct {
	PlaylistItemID uint `json:"playlistItemId" binding:"required"`
	OrderIndex     int  `json:"orderIndex"`
}

// UpdateOrderRequest is the request body for POST /api/playlist/updateOrder.
type UpdateOrderRequest struct {
	OrderIndexList []OrderIndexUpdate `json:"orderIndexList" binding:"required,min=1,dive"`
}

// PlaylistItemIDRequest selects one playlist item (delete, switch).
type PlaylistItemIDRequest struct {
	PlaylistItemID uint `json:"playlistItemId" binding:"required"`
}

// UpdateTimeRequest is the request body for POST /api/sync/updateTime.
type UpdateTimeRequest struct {
	Paused    bool    `json:"paused"`
	Time      float64 `json:"time" binding:"required"`
	Timestamp int64   `json:"timestamp" binding:"required"`
	VideoID   uint    `json:"videoId" binding:"required"`
}

// UpdatePauseRequest is the request body for POST /api/sync/updatePause.
type UpdatePauseRequest struct {
	Paused    bool  `json:"paused"`
	Timestamp int64 `json:"timestamp" binding:"required"`
}

// PlayStatusResponse is the response for GET /api/sync/query.
type PlayStatusResponse struct {
	RoomID    uint    `json:"roomId"`
	Paused    bool    `json:"paused"`
	Time      float64 `json:"time"`
	Timestamp int64   `json:"timestamp"`
	VideoID   uint    `json:"videoId"`
}

// OnlineUser is a presence entry for GET /api/room/queryOnlineUsers.
type OnlineUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ProtocolResponse is the response for GET /api/sync/protocol.
type ProtocolResponse struct {
	Protocol string `json:"protocol"`
}
