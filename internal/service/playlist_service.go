package service

import (
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/database"
	"github.com/happy-game/sync-player/internal/errs"
	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/internal/transport"
)

// PlaylistService drives the playlist item lifecycle: new -> playing ->
// finished, one direction only, at most one playing item per room.
type PlaylistService struct {
	store   *database.Store
	sync    *SyncService
	adapter transport.Adapter
	log     *zap.Logger
}

// NewPlaylistService creates the playlist service.
func NewPlaylistService(store *database.Store, syncSvc *SyncService, adapter transport.Adapter, log *zap.Logger) *PlaylistService {
	return &PlaylistService{store: store, sync: syncSvc, adapter: adapter, log: log}
}

// Add appends an item in state new at the end of the room order.
func (s *PlaylistService) Add(roomID, userID uint, title string, sources []model.VideoSourceInput) (uint, error) {
	itemID, err := s.store.AddPlaylistItem(roomID, title, sources)
	if err != nil {
		return 0, err
	}
	s.notifyPlaylistChanged(roomID, userID)
	return itemID, nil
}

// Query lists playlist items. Without an explicit play-state filter,
// finished items are hidden.
func (s *PlaylistService) Query(roomID uint, itemID *uint, state *model.PlayState) ([]model.PlaylistItem, error) {
	items, err := s.store.QueryPlaylistItems(roomID, itemID, state)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return items, nil
	}
	visible := make([]model.PlaylistItem, 0, len(items))
	for _, item := range items {
		if item.PlayStatus != model.PlayStateFinished {
			visible = append(visible, item)
		}
	}
	return visible, nil
}

// Delete removes an item in any state. Deleting the currently playing item
// does not auto-advance; the room keeps its play status until someone
// switches.
func (s *PlaylistService) Delete(roomID, userID, itemID uint) error {
	if _, err := s.store.GetPlaylistItem(roomID, itemID); err != nil {
		return err
	}
	if err := s.store.DeletePlaylistItem(itemID); err != nil {
		return err
	}
	s.notifyPlaylistChanged(roomID, userID)
	return nil
}

// Clear removes every item in the room playlist.
func (s *PlaylistService) Clear(roomID, userID uint) error {
	if err := s.store.ClearPlaylist(roomID); err != nil {
		return err
	}
	s.notifyPlaylistChanged(roomID, userID)
	return nil
}

// UpdateOrder applies a batch of orderIndex assignments. A pairwise swap is
// expressed as a value exchange, so applying it twice restores the original
// order.
func (s *PlaylistService) UpdateOrder(roomID, userID uint, updates []model.OrderIndexUpdate) error {
	if err := s.store.UpdateOrderIndexes(updates); err != nil {
		return err
	}
	s.notifyPlaylistChanged(roomID, userID)
	return nil
}

// Switch makes targetID the playing item: every currently playing item
// finishes, the target is promoted, and the room play status restarts from
// zero. With targetID zero the first item still in state new (by ascending
// orderIndex) is chosen; if none exists, ErrNothingToPlay is returned and
// nothing changes.
func (s *PlaylistService) Switch(roomID, userID, targetID uint) (uint, error) {
	if targetID == 0 {
		next, err := s.nextNewItem(roomID)
		if err != nil {
			return 0, err
		}
		targetID = next
	} else if _, err := s.store.GetPlaylistItem(roomID, targetID); err != nil {
		return 0, err
	}

	playing := model.PlayStatePlaying
	playingItems, err := s.store.QueryPlaylistItems(roomID, nil, &playing)
	if err != nil {
		return 0, err
	}
	for _, item := range playingItems {
		if err := s.store.SetPlayState(item.ID, model.PlayStateFinished); err != nil {
			return 0, err
		}
	}
	if err := s.store.SetPlayState(targetID, model.PlayStatePlaying); err != nil {
		return 0, err
	}

	if err := s.sync.SwitchVideo(roomID, targetID, []uint{userID}); err != nil {
		return 0, err
	}

	s.log.Info("playlist switched",
		zap.Uint("room_id", roomID),
		zap.Uint("item_id", targetID))
	s.notifyPlaylistChanged(roomID, userID)
	return targetID, nil
}

func (s *PlaylistService) nextNewItem(roomID uint) (uint, error) {
	newState := model.PlayStateNew
	items, err := s.store.QueryPlaylistItems(roomID, nil, &newState)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, errs.ErrNothingToPlay
	}
	return items[0].ID, nil
}

func (s *PlaylistService) notifyPlaylistChanged(roomID, userID uint) {
	msg, err := model.NewSyncMessage(model.MsgUpdatePlaylist, model.RoomPayload{RoomID: roomID})
	if err != nil {
		s.log.Error("failed to encode playlist notification", zap.Error(err))
		return
	}
	s.adapter.Broadcast(roomID, msg, []uint{userID})
}
