package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/errs"
	"github.com/happy-game/sync-player/internal/middleware"
	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/internal/service"
)

// SyncHandler handles the play-status REST API.
type SyncHandler struct {
	svc      *service.SyncService
	protocol string
	logger   *zap.Logger
}

// NewSyncHandler creates the sync handler. protocol is what GET
// /api/sync/protocol reports to clients negotiating a transport.
func NewSyncHandler(svc *service.SyncService, protocol string, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, protocol: protocol, logger: logger}
}

// UpdateTime godoc
// POST /api/sync/updateTime
func (h *SyncHandler) UpdateTime(c *gin.Context) {
	var req model.UpdateTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.svc.UpdateTime(info.RoomID, info.UserID, req); err != nil {
		h.logger.Error("updateTime failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update play status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "play status updated"})
}

// UpdatePause godoc
// POST /api/sync/updatePause
func (h *SyncHandler) UpdatePause(c *gin.Context) {
	var req model.UpdatePauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.svc.UpdatePause(info.RoomID, info.UserID, req.Paused, req.Timestamp); err != nil {
		h.logger.Error("updatePause failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update play status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "play status updated"})
}

// Query godoc
// GET /api/sync/query
func (h *SyncHandler) Query(c *gin.Context) {
	info, ok := middleware.GetUserInfo(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	status, err := h.svc.Status(info.RoomID)
	if err != nil {
		if errors.Is(err, errs.ErrPlayStatusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "play status not found"})
			return
		}
		h.logger.Error("status query failed", zap.Uint("room_id", info.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query play status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Protocol godoc
// GET /api/sync/protocol
func (h *SyncHandler) Protocol(c *gin.Context) {
	c.JSON(http.StatusOK, model.ProtocolResponse{Protocol: h.protocol})
}
