package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send protocol pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBufferSize = 256
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errConnClosed     = errors.New("connection closed")
)

// WebSocketAdapter serves the duplex sync channel. A client authenticates
// with a first-message auth{userId, roomId}; it enters the registry only
// after that, not at raw connect.
type WebSocketAdapter struct {
	fanout
	upgrader   websocket.Upgrader
	presence   Presence
	maxMsgSize int64

	mu      sync.RWMutex
	handler MessageHandler
	conns   map[*wsConn]struct{}
}

// NewWebSocketAdapter creates the WebSocket adapter.
func NewWebSocketAdapter(cfg *config.Config, registry *Registry, presence Presence, log *zap.Logger) *WebSocketAdapter {
	return &WebSocketAdapter{
		fanout:     fanout{registry: registry, log: log},
		presence:   presence,
		maxMsgSize: cfg.WSMaxMessageSize,
		conns:      make(map[*wsConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WSReadBufferSize,
			WriteBufferSize: cfg.WSWriteBufferSize,
			// Origin is enforced by the CORS layer; the cookie handshake
			// carries no credentials the upgrade needs to re-check.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// OnMessage registers the inbound message handler.
func (a *WebSocketAdapter) OnMessage(handler MessageHandler) {
	a.mu.Lock()
	a.handler = handler
	a.mu.Unlock()
}

// Start starts the adapter.
func (a *WebSocketAdapter) Start() error {
	a.log.Info("websocket adapter started")
	return nil
}

// Stop closes every open connection.
func (a *WebSocketAdapter) Stop() error {
	a.mu.Lock()
	conns := make([]*wsConn, 0, len(a.conns))
	for c := range a.conns {
		conns = append(conns, c)
	}
	a.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	a.log.Info("websocket adapter stopped")
	return nil
}

// HandleWS upgrades GET /ws and runs the connection loops.
func (a *WebSocketAdapter) HandleWS(c *gin.Context) {
	ws, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &wsConn{
		id:   uuid.New().String(),
		ws:   ws,
		send: make(chan model.SyncMessage, sendBufferSize),
		log:  a.log,
	}
	a.track(conn, true)

	a.log.Info("client connected", zap.String("conn_id", conn.id))
	if err := conn.Send(model.SyncMessage{Type: model.MsgConnected}); err != nil {
		a.log.Warn("connected envelope dropped", zap.String("conn_id", conn.id))
	}

	go conn.writePump()
	a.readLoop(conn)
}

func (a *WebSocketAdapter) track(conn *wsConn, add bool) {
	a.mu.Lock()
	if add {
		a.conns[conn] = struct{}{}
	} else {
		delete(a.conns, conn)
	}
	a.mu.Unlock()
}

func (a *WebSocketAdapter) readLoop(conn *wsConn) {
	defer a.cleanup(conn)

	if a.maxMsgSize > 0 {
		conn.ws.SetReadLimit(a.maxMsgSize)
	}
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				a.log.Warn("websocket read error", zap.String("conn_id", conn.id), zap.Error(err))
			}
			return
		}

		var msg model.SyncMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			a.log.Warn("invalid message discarded", zap.String("conn_id", conn.id), zap.Error(err))
			continue
		}

		switch msg.Type {
		case model.MsgAuth:
			a.handleAuth(conn, msg)
		case model.MsgPing:
			// Application-level heartbeat; a pong keeps unauthenticated
			// probes alive too.
			_ = conn.Send(model.SyncMessage{Type: model.MsgPong})
		}

		a.mu.RLock()
		handler := a.handler
		a.mu.RUnlock()
		if handler != nil {
			handler(conn, msg)
		}
	}
}

func (a *WebSocketAdapter) handleAuth(conn *wsConn, msg model.SyncMessage) {
	var payload model.AuthPayload
	if err := msg.DecodePayload(&payload); err != nil || payload.UserID == 0 || payload.RoomID == 0 {
		a.log.Warn("malformed auth message", zap.String("conn_id", conn.id))
		return
	}
	conn.setIdentity(payload.UserID, payload.RoomID)
	a.registry.Add(conn)
	if err := a.presence.SetMemberOnline(payload.RoomID, payload.UserID, true); err != nil {
		a.log.Warn("failed to mark member online", zap.Uint("user_id", payload.UserID), zap.Error(err))
	}
	a.log.Info("user connected to room",
		zap.Uint("user_id", payload.UserID),
		zap.Uint("room_id", payload.RoomID))
}

func (a *WebSocketAdapter) cleanup(conn *wsConn) {
	a.track(conn, false)
	conn.closeSend()
	_ = conn.ws.Close()

	userID, roomID, authed := conn.identity()
	if !authed {
		a.log.Info("client disconnected before auth", zap.String("conn_id", conn.id))
		return
	}
	// roomID is retained on the conn, so the close scan stays within one room.
	if a.registry.Remove(conn) {
		if err := a.presence.SetMemberOnline(roomID, userID, false); err != nil {
			a.log.Warn("failed to mark member offline", zap.Uint("user_id", userID), zap.Error(err))
		}
		a.log.Info("user disconnected from room",
			zap.Uint("user_id", userID),
			zap.Uint("room_id", roomID))
	}
}

// wsConn is one WebSocket channel. Outbound messages go through a buffered
// channel so a slow reader cannot block a broadcast.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan model.SyncMessage
	log  *zap.Logger

	mu     sync.Mutex
	userID uint
	roomID uint
	authed bool
	closed bool
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) UserID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *wsConn) RoomID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *wsConn) setIdentity(userID, roomID uint) {
	c.mu.Lock()
	c.userID = userID
	c.roomID = roomID
	c.authed = true
	c.mu.Unlock()
}

func (c *wsConn) identity() (userID, roomID uint, authed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.roomID, c.authed
}

// Send enqueues without blocking; a full buffer counts as a failed write.
// The mutex is held across the enqueue so closeSend cannot close the channel
// between the closed check and the send.
func (c *wsConn) Send(msg model.SyncMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				c.log.Warn("websocket write failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			// Protocol-level keep-alive so intermediaries do not tear down
			// idle connections.
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
