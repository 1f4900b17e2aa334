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

// PlaylistHandler handles the playlist REST API.
type PlaylistHandler struct {
	svc    *service.PlaylistService
	logger *zap.Logger
}

// NewPlaylistHandler creates the playlist handler.
func NewPlaylistHandler(svc *service.PlaylistService, logger *zap.Logger) *PlaylistHandler {
	return &PlaylistHandler{svc: svc, logger: logger}
}

// Add godoc
// POST /api/playlist/add
func (h *PlaylistHandler) Add(c *gin.Context) {
	var req model.AddPlaylistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	itemID, err := h.svc.Add(info.RoomID, info.UserID, req.Title, req.Sources)
	if err != nil {
		h.logger.Error("playlist add failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add playlist item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item added to playlist", "playlistItemId": itemID})
}

// Query godoc
// GET /api/playlist/query?playlistItemId=&playStatus=
func (h *PlaylistHandler) Query(c *gin.Context) {
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var itemID *uint
	if idStr := c.Query("playlistItemId"); idStr != "" {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlistItemId"})
			return
		}
		v := uint(id)
		itemID = &v
	}
	var state *model.PlayState
	if stateStr := c.Query("playStatus"); stateStr != "" {
		v := model.PlayState(stateStr)
		state = &v
	}

	items, err := h.svc.Query(info.RoomID, itemID, state)
	if err != nil {
		h.logger.Error("playlist query failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query playlist"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// Delete godoc
// DELETE /api/playlist/delete
func (h *PlaylistHandler) Delete(c *gin.Context) {
	var req model.PlaylistItemIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.svc.Delete(info.RoomID, info.UserID, req.PlaylistItemID); err != nil {
		if errors.Is(err, errs.ErrPlaylistItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "playlist item not found"})
			return
		}
		h.logger.Error("playlist delete failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete playlist item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted from playlist"})
}

// Clear godoc
// DELETE /api/playlist/clear
func (h *PlaylistHandler) Clear(c *gin.Context) {
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.svc.Clear(info.RoomID, info.UserID); err != nil {
		h.logger.Error("playlist clear failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear playlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "playlist cleared"})
}

// UpdateOrder godoc
// POST /api/playlist/updateOrder
func (h *PlaylistHandler) UpdateOrder(c *gin.Context) {
	var req model.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.svc.UpdateOrder(info.RoomID, info.UserID, req.OrderIndexList); err != nil {
		h.logger.Error("playlist reorder failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order updated"})
}

// Switch godoc
// POST /api/playlist/switch
// An omitted playlistItemId advances to the first item still in state new.
func (h *PlaylistHandler) Switch(c *gin.Context) {
	var req struct {
		PlaylistItemID uint `json:"playlistItemId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	itemID, err := h.svc.Switch(info.RoomID, info.UserID, req.PlaylistItemID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNothingToPlay):
			c.JSON(http.StatusOK, gin.H{"message": "nothing to play"})
		case errors.Is(err, errs.ErrPlaylistItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "playlist item not found"})
		default:
			h.logger.Error("playlist switch failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to switch playlist item"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "playlist item switched", "playlistItemId": itemID})
}
