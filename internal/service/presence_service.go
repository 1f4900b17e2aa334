package service

import (
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/database"
	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/internal/transport"
)

// PresenceService records member online state and tells the other room
// members to refresh their user list. The adapter is bound after transport
// construction because the transport itself reports presence changes here.
type PresenceService struct {
	store   *database.Store
	adapter transport.Adapter
	log     *zap.Logger
}

// NewPresenceService creates the presence service.
func NewPresenceService(store *database.Store, log *zap.Logger) *PresenceService {
	return &PresenceService{store: store, log: log}
}

// Bind attaches the transport adapter once it exists.
func (s *PresenceService) Bind(adapter transport.Adapter) {
	s.adapter = adapter
}

// SetMemberOnline implements transport.Presence.
func (s *PresenceService) SetMemberOnline(roomID, userID uint, online bool) error {
	if err := s.store.SetMemberOnline(roomID, userID, online); err != nil {
		return err
	}
	s.notifyUserList(roomID, userID)
	return nil
}

func (s *PresenceService) notifyUserList(roomID, userID uint) {
	if s.adapter == nil {
		return
	}
	msg, err := model.NewSyncMessage(model.MsgUpdateUserList, model.RoomPayload{RoomID: roomID})
	if err != nil {
		s.log.Error("failed to encode user list notification", zap.Error(err))
		return
	}
	s.adapter.Broadcast(roomID, msg, []uint{userID})
}
