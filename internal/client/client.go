// Package client is the Go client for the sync-player server: it keeps a
// room member connected over the negotiated transport, dispatches inbound
// sync messages to subscribers and tracks the extrapolated playback clock.
package client

import (
	"github.com/happy-game/sync-player/internal/errs"
	"github.com/happy-game/sync-player/internal/model"
)

// ErrNotConnected is returned by Send when no transport channel is live.
var ErrNotConnected = errs.ErrNotConnected

// Handler receives every inbound message of the subscribed type.
type Handler func(msg model.SyncMessage)

// conn is one live channel to the server. Implementations report inbound
// messages and channel loss through the callbacks given at dial time.
type conn interface {
	send(msg model.SyncMessage) error
	close() error
}

type connCallbacks struct {
	onMessage    func(msg model.SyncMessage)
	onDisconnect func(err error)
}
