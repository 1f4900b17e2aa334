package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/pkg/constants"
)

const (
	defaultReconnectDelay    = 5 * time.Second
	defaultHeartbeatInterval = 10 * time.Second
)

// Options configures a Manager.
type Options struct {
	// BaseURL is the server HTTP origin, e.g. http://localhost:3000.
	BaseURL string
	RoomID  uint
	UserID  uint

	// Protocol forces websocket or sse. Empty negotiates via
	// GET /api/sync/protocol.
	Protocol string

	ReconnectDelay    time.Duration
	HeartbeatInterval time.Duration
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// Manager keeps one member connected to a room. It reconnects on channel
// loss with a single pending timer, heartbeats over websocket, and
// dispatches inbound messages by type to subscribers. Messages with no
// subscriber are dropped.
type Manager struct {
	opts  Options
	httpc *http.Client
	log   *zap.Logger
	clock *PlaybackClock

	mu        sync.Mutex
	conn      conn
	closed    bool
	reconnect *time.Timer
	hbStop    chan struct{}

	subMu   sync.RWMutex
	subs    map[string]map[int]Handler
	nextSub int
}

// NewManager creates a manager. Connect starts the session.
func NewManager(opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		opts:  opts,
		httpc: httpc,
		log:   log,
		clock: NewPlaybackClock(),
		subs:  make(map[string]map[int]Handler),
	}
}

// Clock returns the playback clock tracking the room's authoritative state.
func (m *Manager) Clock() *PlaybackClock { return m.clock }

// Connect negotiates the transport (unless forced in Options) and opens the
// channel. On channel loss the manager reconnects automatically until
// Disconnect is called.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return nil
	}
	m.closed = false
	if m.reconnect != nil {
		// An explicit connect supersedes a pending retry.
		m.reconnect.Stop()
		m.reconnect = nil
	}

	protocol := m.opts.Protocol
	if protocol == "" {
		p, err := m.negotiateProtocol(ctx)
		if err != nil {
			return err
		}
		protocol = p
	}

	callbacks := connCallbacks{
		onMessage:    m.dispatch,
		onDisconnect: m.handleDisconnect,
	}
	var (
		c   conn
		err error
	)
	switch protocol {
	case config.ProtocolWebSocket:
		c, err = dialWS(ctx, m.opts, callbacks)
	case config.ProtocolSSE:
		c, err = dialSSE(ctx, m.opts, m.httpc, callbacks)
	default:
		return fmt.Errorf("client: unsupported sync protocol %q", protocol)
	}
	if err != nil {
		return err
	}
	m.conn = c
	m.log.Info("connected", zap.String("protocol", protocol), zap.Uint("room_id", m.opts.RoomID))

	if protocol == config.ProtocolWebSocket {
		m.hbStop = make(chan struct{})
		go m.heartbeat(m.hbStop)
	}
	return nil
}

// Disconnect closes the channel and cancels any pending reconnect.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.stopHeartbeatLocked()
	if m.conn == nil {
		return nil
	}
	err := m.conn.close()
	m.conn = nil
	return err
}

// Subscribe registers a handler for a message type and returns a token for
// Unsubscribe. Multiple handlers per type all run, in no defined order.
func (m *Manager) Subscribe(msgType string, h Handler) int {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.nextSub++
	if m.subs[msgType] == nil {
		m.subs[msgType] = make(map[int]Handler)
	}
	m.subs[msgType][m.nextSub] = h
	return m.nextSub
}

// Unsubscribe removes a previously registered handler.
func (m *Manager) Unsubscribe(msgType string, token int) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if handlers := m.subs[msgType]; handlers != nil {
		delete(handlers, token)
	}
}

// Send writes a message to the server over the live channel.
func (m *Manager) Send(msg model.SyncMessage) error {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.send(msg)
}

func (m *Manager) negotiateProtocol(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.opts.BaseURL+constants.PathProtocol, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("client: protocol negotiation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("client: protocol negotiation: status %d", resp.StatusCode)
	}
	var pr model.ProtocolResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("client: protocol negotiation: %w", err)
	}
	return pr.Protocol, nil
}

// dispatch updates the playback clock from sync messages, then fans the
// message out to subscribers of its type.
func (m *Manager) dispatch(msg model.SyncMessage) {
	switch msg.Type {
	case model.MsgUpdateTime:
		var p model.UpdateTimePayload
		if err := msg.DecodePayload(&p); err == nil {
			m.clock.applyTime(p)
		}
	case model.MsgUpdatePause:
		var p model.UpdatePausePayload
		if err := msg.DecodePayload(&p); err == nil {
			m.clock.applyPause(p.Paused, p.Timestamp)
		}
	case model.MsgSwitchVideo:
		var p model.SwitchVideoPayload
		if err := msg.DecodePayload(&p); err == nil {
			m.clock.applySwitch(p.VideoID, p.Timestamp)
		}
	}

	m.subMu.RLock()
	handlers := make([]Handler, 0, len(m.subs[msg.Type]))
	for _, h := range m.subs[msg.Type] {
		handlers = append(handlers, h)
	}
	m.subMu.RUnlock()
	for _, h := range handlers {
		h(msg)
	}
}

// handleDisconnect arms the reconnect timer. At most one timer is pending:
// repeated channel losses while one is armed do not stack retries.
func (m *Manager) handleDisconnect(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = nil
	m.stopHeartbeatLocked()
	if m.closed || m.reconnect != nil {
		return
	}
	if err != nil {
		m.log.Warn("channel lost", zap.Error(err))
	}
	m.reconnect = time.AfterFunc(m.opts.ReconnectDelay, func() {
		m.mu.Lock()
		m.reconnect = nil
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}
		if err := m.Connect(context.Background()); err != nil {
			m.log.Warn("reconnect failed", zap.Error(err))
			m.handleDisconnect(nil)
		}
	})
}

func (m *Manager) heartbeat(stop chan struct{}) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()
	ping, err := model.NewSyncMessage(model.MsgPing, struct{}{})
	if err != nil {
		return
	}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.Send(ping); err != nil {
				return
			}
		}
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.hbStop != nil {
		close(m.hbStop)
		m.hbStop = nil
	}
}
