package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/model"
)

// SSEAdapter serves the push-only sync channel. Identity comes from connect
// query parameters; the client writes through the regular HTTP endpoints.
// Connection close is the only authoritative disconnect signal.
type SSEAdapter struct {
	fanout
	presence  Presence
	heartbeat time.Duration

	mu      sync.RWMutex
	handler MessageHandler
	conns   map[*sseConn]struct{}
}

// NewSSEAdapter creates the SSE adapter.
func NewSSEAdapter(cfg *config.Config, registry *Registry, presence Presence, log *zap.Logger) *SSEAdapter {
	heartbeat := cfg.SSEHeartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &SSEAdapter{
		fanout:    fanout{registry: registry, log: log},
		presence:  presence,
		heartbeat: heartbeat,
		conns:     make(map[*sseConn]struct{}),
	}
}

// OnMessage registers the inbound handler. SSE channels carry no inbound
// application messages, so it is only invoked by other transports sharing
// the contract; kept for interface symmetry.
func (a *SSEAdapter) OnMessage(handler MessageHandler) {
	a.mu.Lock()
	a.handler = handler
	a.mu.Unlock()
}

// Start starts the adapter.
func (a *SSEAdapter) Start() error {
	a.log.Info("sse adapter started")
	return nil
}

// Stop releases every open stream.
func (a *SSEAdapter) Stop() error {
	a.mu.Lock()
	conns := make([]*sseConn, 0, len(a.conns))
	for c := range a.conns {
		conns = append(conns, c)
	}
	a.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	a.log.Info("sse adapter stopped")
	return nil
}

// HandleConnect serves GET /sse/connect?userId=&roomId= and blocks until the
// client goes away.
func (a *SSEAdapter) HandleConnect(c *gin.Context) {
	userID, err1 := parseUintParam(c.Query("userId"))
	roomID, err2 := parseUintParam(c.Query("roomId"))
	if err1 != nil || err2 != nil || userID == 0 || roomID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid userId/roomId"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	conn := &sseConn{
		id:      uuid.New().String(),
		userID:  userID,
		roomID:  roomID,
		writer:  c.Writer,
		flusher: flusher,
		done:    make(chan struct{}),
	}
	a.track(conn, true)
	a.registry.Add(conn)
	if err := a.presence.SetMemberOnline(roomID, userID, true); err != nil {
		a.log.Warn("failed to mark member online", zap.Uint("user_id", userID), zap.Error(err))
	}
	a.log.Info("user connected via sse", zap.Uint("user_id", userID), zap.Uint("room_id", roomID))

	_ = conn.Send(model.SyncMessage{Type: model.MsgConnected})

	ticker := time.NewTicker(a.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			a.disconnect(conn)
			return
		case <-conn.done:
			a.disconnect(conn)
			return
		case <-ticker.C:
			conn.comment()
		}
	}
}

func (a *SSEAdapter) track(conn *sseConn, add bool) {
	a.mu.Lock()
	if add {
		a.conns[conn] = struct{}{}
	} else {
		delete(a.conns, conn)
	}
	a.mu.Unlock()
}

func (a *SSEAdapter) disconnect(conn *sseConn) {
	// Close first: a broadcast that snapshotted the registry before Remove
	// must not touch the ResponseWriter once the handler unwinds.
	_ = conn.Close()
	a.track(conn, false)
	if a.registry.Remove(conn) {
		if err := a.presence.SetMemberOnline(conn.roomID, conn.userID, false); err != nil {
			a.log.Warn("failed to mark member offline", zap.Uint("user_id", conn.userID), zap.Error(err))
		}
		a.log.Info("user disconnected from sse",
			zap.Uint("user_id", conn.userID),
			zap.Uint("room_id", conn.roomID))
	}
}

func parseUintParam(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint(v), err
}

// sseConn is one event stream. Writes are serialized with a mutex because
// broadcasts and the heartbeat ticker run on different goroutines.
type sseConn struct {
	id      string
	userID  uint
	roomID  uint
	writer  gin.ResponseWriter
	flusher http.Flusher

	mu        sync.Mutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

func (c *sseConn) ID() string   { return c.id }
func (c *sseConn) UserID() uint { return c.userID }
func (c *sseConn) RoomID() uint { return c.roomID }

// Send writes one event frame and flushes.
func (c *sseConn) Send(msg model.SyncMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if _, err := fmt.Fprintf(c.writer, "data: %s\n\n", data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// comment writes a no-op frame to keep intermediaries from closing the
// stream.
func (c *sseConn) comment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	fmt.Fprint(c.writer, ":\n\n")
	c.flusher.Flush()
}

// Close releases the stream; HandleConnect unwinds on the done channel.
func (c *sseConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
