package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/errs"
	"github.com/happy-game/sync-player/internal/middleware"
	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/internal/service"
)

// RoomHandler handles the room REST API.
type RoomHandler struct {
	svc    *service.RoomService
	logger *zap.Logger
}

// NewRoomHandler creates the room handler.
func NewRoomHandler(svc *service.RoomService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{svc: svc, logger: logger}
}

// Create godoc
// POST /api/room/create
func (h *RoomHandler) Create(c *gin.Context) {
	var req model.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	room, err := h.svc.Create(req.Name, req.Password)
	if err != nil {
		h.logger.Error("room create failed", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          room.ID,
		"name":        room.Name,
		"createdTime": room.CreatedTime,
	})
}

// Query godoc
// GET /api/room/query?name=
func (h *RoomHandler) Query(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room name is required"})
		return
	}
	room, err := h.svc.QueryByName(name)
	if err != nil {
		if errors.Is(err, errs.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		h.logger.Error("room query failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query room"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// Join godoc
// POST /api/room/join
func (h *RoomHandler) Join(c *gin.Context) {
	var req model.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	if err := h.svc.Join(req.RoomID, req.UserID, req.Password); err != nil {
		switch {
		case errors.Is(err, errs.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, errs.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, errs.ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		case errors.Is(err, errs.ErrAlreadyInRoom):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user is already in the room"})
		default:
			h.logger.Error("room join failed", zap.Uint("room_id", req.RoomID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		}
		return
	}
	middleware.SetUserInfoCookie(c, req.RoomID, req.UserID)
	c.JSON(http.StatusOK, gin.H{"message": "joined room"})
}

// Leave godoc
// POST /api/room/leave
func (h *RoomHandler) Leave(c *gin.Context) {
	var req model.LeaveRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	if err := h.svc.Leave(req.RoomID, req.UserID); err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user is not in the room"})
			return
		}
		h.logger.Error("room leave failed", zap.Uint("room_id", req.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left room"})
}

// QueryOnlineUsers godoc
// GET /api/room/queryOnlineUsers?roomId=
func (h *RoomHandler) QueryOnlineUsers(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Query("roomId"), 10, 32)
	if err != nil || roomID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid roomId"})
		return
	}
	users, err := h.svc.OnlineUsers(uint(roomID))
	if err != nil {
		h.logger.Error("online users query failed", zap.Uint64("room_id", roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query online users"})
		return
	}
	c.JSON(http.StatusOK, users)
}
