package transport

import (
	"sync"

	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/model"
)

// Registry maps roomID -> userID -> live connection. It is owned by the sync
// wiring and injected into the adapters; rebuilt from zero on restart, so
// every client reconnects.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uint]map[uint]Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[uint]map[uint]Conn)}
}

// Add registers a connection under its (room, user) key, replacing any
// previous channel for the same member.
func (r *Registry) Add(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID := conn.RoomID()
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[uint]Conn)
	}
	r.rooms[roomID][conn.UserID()] = conn
}

// Remove drops the member's connection if it is still the registered one.
// Returns true when something was removed.
func (r *Registry) Remove(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[conn.RoomID()]
	if !ok {
		return false
	}
	current, ok := members[conn.UserID()]
	if !ok || current.ID() != conn.ID() {
		// A reconnect already replaced this channel.
		return false
	}
	delete(members, conn.UserID())
	if len(members) == 0 {
		delete(r.rooms, conn.RoomID())
	}
	return true
}

// Get returns the member's connection.
func (r *Registry) Get(roomID, userID uint) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.rooms[roomID][userID]
	return conn, ok
}

// UserIDs returns the ids of members currently connected in a room.
func (r *Registry) UserIDs(roomID uint) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	ids := make([]uint, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot copies the member connections of a room so callers can iterate
// without holding the lock. A join or leave during a broadcast can at worst
// miss or double-deliver to that one member.
func (r *Registry) Snapshot(roomID uint) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	conns := make([]Conn, 0, len(members))
	for _, c := range members {
		conns = append(conns, c)
	}
	return conns
}

// Stats returns the number of rooms and total connections.
func (r *Registry) Stats() (rooms, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms = len(r.rooms)
	for _, members := range r.rooms {
		conns += len(members)
	}
	return rooms, conns
}

// fanout implements the adapter send operations over the registry. Both
// adapters embed it so broadcast semantics stay identical across transports.
type fanout struct {
	registry *Registry
	log      *zap.Logger
}

func (f *fanout) Broadcast(roomID uint, msg model.SyncMessage, excludeUserIDs []uint) {
	exclude := make(map[uint]bool, len(excludeUserIDs))
	for _, id := range excludeUserIDs {
		exclude[id] = true
	}
	for _, conn := range f.registry.Snapshot(roomID) {
		if exclude[conn.UserID()] {
			continue
		}
		if err := conn.Send(msg); err != nil {
			f.log.Warn("broadcast write failed, skipping member",
				zap.Uint("room_id", roomID),
				zap.Uint("user_id", conn.UserID()),
				zap.Error(err))
		}
	}
}

func (f *fanout) SendToUsers(roomID uint, userIDs []uint, msg model.SyncMessage) {
	for _, userID := range userIDs {
		conn, ok := f.registry.Get(roomID, userID)
		if !ok {
			continue
		}
		if err := conn.Send(msg); err != nil {
			f.log.Warn("targeted write failed",
				zap.Uint("room_id", roomID),
				zap.Uint("user_id", userID),
				zap.Error(err))
		}
	}
}

func (f *fanout) UserIDsInRoom(roomID uint) []uint {
	return f.registry.UserIDs(roomID)
}
