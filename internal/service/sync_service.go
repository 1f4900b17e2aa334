package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/database"
	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/internal/transport"
)

// SyncService owns the authoritative play status of every room. All
// mutations persist before they broadcast, so clients never observe a state
// that was not durably committed.
type SyncService struct {
	store   *database.Store
	adapter transport.Adapter
	log     *zap.Logger

	// Wall clock, swappable in tests.
	now func() time.Time

	// Per-room locks serialize read-modify-write on play status so two
	// concurrent queries cannot double-advance the extrapolated time.
	lockMu sync.Mutex
	locks  map[uint]*sync.Mutex
}

// NewSyncService creates the sync coordinator.
func NewSyncService(store *database.Store, adapter transport.Adapter, log *zap.Logger) *SyncService {
	return &SyncService{
		store:   store,
		adapter: adapter,
		log:     log,
		now:     time.Now,
		locks:   make(map[uint]*sync.Mutex),
	}
}

func (s *SyncService) roomLock(roomID uint) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.locks[roomID] == nil {
		s.locks[roomID] = &sync.Mutex{}
	}
	return s.locks[roomID]
}

// UpdateTime replaces the authoritative play status of a room and fans the
// change out to every member except the originator.
func (s *SyncService) UpdateTime(roomID, userID uint, req model.UpdateTimeRequest) error {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	s.log.Info("sync updateTime",
		zap.Uint("room_id", roomID),
		zap.Uint("user_id", userID),
		zap.Bool("paused", req.Paused),
		zap.Float64("time", req.Time),
		zap.Uint("video_id", req.VideoID))

	if _, err := s.store.GetPlayStatus(roomID); err != nil {
		if err := s.store.CreatePlayStatus(roomID, req.Paused, req.Time, req.Timestamp, req.VideoID); err != nil {
			return err
		}
	} else {
		err := s.store.UpdatePlayStatus(roomID, map[string]any{
			"paused":    req.Paused,
			"time":      req.Time,
			"timestamp": req.Timestamp,
			"video_id":  req.VideoID,
		})
		if err != nil {
			return err
		}
	}

	s.broadcast(roomID, model.MsgUpdateTime, model.UpdateTimePayload{
		RoomID:    roomID,
		UserID:    userID,
		Paused:    req.Paused,
		Time:      req.Time,
		Timestamp: req.Timestamp,
		VideoID:   req.VideoID,
	}, []uint{userID})
	return nil
}

// UpdatePause flips the pause flag. Time keeps its last authoritative value;
// receivers extrapolate from the new timestamp. An absent status row is
// created at position zero.
func (s *SyncService) UpdatePause(roomID, userID uint, paused bool, timestamp int64) error {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	s.log.Info("sync updatePause",
		zap.Uint("room_id", roomID),
		zap.Uint("user_id", userID),
		zap.Bool("paused", paused))

	if _, err := s.store.GetPlayStatus(roomID); err != nil {
		if err := s.store.CreatePlayStatus(roomID, paused, 0, timestamp, 0); err != nil {
			return err
		}
	} else {
		err := s.store.UpdatePlayStatus(roomID, map[string]any{
			"paused":    paused,
			"timestamp": timestamp,
		})
		if err != nil {
			return err
		}
	}

	s.broadcast(roomID, model.MsgUpdatePause, model.UpdatePausePayload{
		RoomID:    roomID,
		UserID:    userID,
		Paused:    paused,
		Timestamp: timestamp,
	}, []uint{userID})
	return nil
}

// SwitchVideo resets the room play status to the start of a new active item
// and announces the switch to the other members.
func (s *SyncService) SwitchVideo(roomID, videoID uint, excludeUserIDs []uint) error {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now().UnixMilli()
	if _, err := s.store.GetPlayStatus(roomID); err != nil {
		if err := s.store.CreatePlayStatus(roomID, false, 0, now, videoID); err != nil {
			return err
		}
	} else {
		err := s.store.UpdatePlayStatus(roomID, map[string]any{
			"paused":    false,
			"time":      0.0,
			"timestamp": now,
			"video_id":  videoID,
		})
		if err != nil {
			return err
		}
	}

	s.broadcast(roomID, model.MsgSwitchVideo, model.SwitchVideoPayload{
		RoomID:    roomID,
		VideoID:   videoID,
		Timestamp: now,
	}, excludeUserIDs)
	return nil
}

// Status returns the play status extrapolated to now. The advanced position
// is persisted back, so repeated queries do not compound rounding drift.
func (s *SyncService) Status(roomID uint) (*model.PlayStatusResponse, error) {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	status, err := s.store.GetPlayStatus(roomID)
	if err != nil {
		// The store already maps a missing row to ErrPlayStatusNotFound;
		// anything else is a real persistence failure.
		return nil, err
	}

	if !status.Paused {
		now := s.now().UnixMilli()
		status.Time += float64(now-status.Timestamp) / 1000.0
		status.Timestamp = now
		err := s.store.UpdatePlayStatus(roomID, map[string]any{
			"time":      status.Time,
			"timestamp": status.Timestamp,
		})
		if err != nil {
			return nil, err
		}
	}

	return &model.PlayStatusResponse{
		RoomID:    status.RoomID,
		Paused:    status.Paused,
		Time:      status.Time,
		Timestamp: status.Timestamp,
		VideoID:   status.VideoID,
	}, nil
}

// HandleMessage dispatches inbound transport messages to the matching sync
// operation. Auth and ping never reach here; unknown types are dropped.
func (s *SyncService) HandleMessage(conn transport.Conn, msg model.SyncMessage) {
	switch msg.Type {
	case model.MsgUpdateTime:
		var p model.UpdateTimePayload
		if err := msg.DecodePayload(&p); err != nil {
			s.log.Warn("bad updateTime payload", zap.String("conn_id", conn.ID()), zap.Error(err))
			return
		}
		err := s.UpdateTime(conn.RoomID(), conn.UserID(), model.UpdateTimeRequest{
			Paused:    p.Paused,
			Time:      p.Time,
			Timestamp: p.Timestamp,
			VideoID:   p.VideoID,
		})
		if err != nil {
			s.log.Error("transport updateTime failed", zap.Uint("room_id", conn.RoomID()), zap.Error(err))
		}
	case model.MsgUpdatePause:
		var p model.UpdatePausePayload
		if err := msg.DecodePayload(&p); err != nil {
			s.log.Warn("bad updatePause payload", zap.String("conn_id", conn.ID()), zap.Error(err))
			return
		}
		if err := s.UpdatePause(conn.RoomID(), conn.UserID(), p.Paused, p.Timestamp); err != nil {
			s.log.Error("transport updatePause failed", zap.Uint("room_id", conn.RoomID()), zap.Error(err))
		}
	}
}

func (s *SyncService) broadcast(roomID uint, msgType string, payload any, excludeUserIDs []uint) {
	msg, err := model.NewSyncMessage(msgType, payload)
	if err != nil {
		s.log.Error("failed to encode sync message", zap.String("type", msgType), zap.Error(err))
		return
	}
	s.adapter.Broadcast(roomID, msg, excludeUserIDs)
}
