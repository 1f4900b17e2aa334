package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/pkg/constants"
)

// wsChannel is the duplex websocket channel. The first frame after dialing
// authenticates the (user, room) pair; the server registers the connection
// only after that.
type wsChannel struct {
	ws *websocket.Conn
	cb connCallbacks

	mu     sync.Mutex
	closed bool
}

func dialWS(ctx context.Context, opts Options, cb connCallbacks) (conn, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("client: bad base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = constants.PathWebSocket

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("client: websocket dial: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &wsChannel{ws: ws, cb: cb}
	auth, err := model.NewSyncMessage(model.MsgAuth, model.AuthPayload{
		UserID: opts.UserID,
		RoomID: opts.RoomID,
	})
	if err != nil {
		ws.Close()
		return nil, err
	}
	if err := c.send(auth); err != nil {
		ws.Close()
		return nil, fmt.Errorf("client: auth: %w", err)
	}

	go c.readLoop()
	return c, nil
}

func (c *wsChannel) readLoop() {
	for {
		var msg model.SyncMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.cb.onDisconnect(err)
			}
			return
		}
		c.cb.onMessage(msg)
	}
}

func (c *wsChannel) send(msg model.SyncMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	return c.ws.WriteJSON(msg)
}

func (c *wsChannel) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.mu.Unlock()
	return c.ws.Close()
}
