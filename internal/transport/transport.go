// Package transport delivers sync messages to connected room members over a
// pluggable channel: a duplex WebSocket or a push-only SSE stream paired with
// the HTTP write endpoints.
package transport

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/model"
)

// Conn is one live channel to a room member.
type Conn interface {
	ID() string
	UserID() uint
	RoomID() uint
	// Send enqueues a message without blocking. A full buffer or closed
	// channel returns an error; the caller isolates it to this member.
	Send(msg model.SyncMessage) error
	Close() error
}

// MessageHandler receives every inbound application message on any channel
// the adapter owns. Registration is single-slot and not retroactive:
// messages arriving before registration are not replayed.
type MessageHandler func(conn Conn, msg model.SyncMessage)

// Presence is notified when a member's channel opens or closes.
type Presence interface {
	SetMemberOnline(roomID, userID uint, online bool) error
}

// Adapter is the uniform transport contract consumed by the sync coordinator.
type Adapter interface {
	// Broadcast sends to every member of the room except those listed.
	// Delivery is best effort per member; one failed write never aborts
	// the rest of the fan-out.
	Broadcast(roomID uint, msg model.SyncMessage, excludeUserIDs []uint)
	// SendToUsers sends to specific members of a room.
	SendToUsers(roomID uint, userIDs []uint, msg model.SyncMessage)
	// UserIDsInRoom returns the ids currently connected in a room.
	UserIDsInRoom(roomID uint) []uint
	// OnMessage registers the single inbound message handler.
	OnMessage(handler MessageHandler)
	Start() error
	Stop() error
}

// New creates the adapter for the configured sync protocol.
func New(cfg *config.Config, registry *Registry, presence Presence, log *zap.Logger) (Adapter, error) {
	switch cfg.SyncProtocol {
	case config.ProtocolWebSocket:
		return NewWebSocketAdapter(cfg, registry, presence, log), nil
	case config.ProtocolSSE:
		return NewSSEAdapter(cfg, registry, presence, log), nil
	default:
		return nil, fmt.Errorf("transport: unsupported sync protocol %q", cfg.SyncProtocol)
	}
}
