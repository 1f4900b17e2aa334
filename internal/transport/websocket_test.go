package transport

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/model"
)

type presenceCall struct {
	roomID uint
	userID uint
	online bool
}

type fakePresence struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (p *fakePresence) SetMemberOnline(roomID, userID uint, online bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, presenceCall{roomID: roomID, userID: userID, online: online})
	return nil
}

func (p *fakePresence) last() (presenceCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return presenceCall{}, false
	}
	return p.calls[len(p.calls)-1], true
}

func testWSConfig() *config.Config {
	cfg := &config.Config{
		SyncProtocol:      config.ProtocolWebSocket,
		WSReadBufferSize:  1024,
		WSWriteBufferSize: 1024,
		WSMaxMessageSize:  4096,
	}
	return cfg
}

func dialTestWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) model.SyncMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg model.SyncMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestWebSocketAuthRegistersAndBroadcastReaches(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	presence := &fakePresence{}
	adapter := NewWebSocketAdapter(testWSConfig(), registry, presence, zap.NewNop())

	inbound := make(chan model.SyncMessage, 8)
	adapter.OnMessage(func(conn Conn, msg model.SyncMessage) {
		if msg.Type == model.MsgUpdateTime {
			inbound <- msg
		}
	})

	r := gin.New()
	r.GET("/ws", adapter.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ws := dialTestWS(t, srv)
	assert.Equal(t, model.MsgConnected, readMessage(t, ws).Type)

	auth, err := model.NewSyncMessage(model.MsgAuth, model.AuthPayload{UserID: 2, RoomID: 1})
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(auth))

	require.Eventually(t, func() bool {
		_, ok := registry.Get(1, 2)
		return ok
	}, 2*time.Second, 10*time.Millisecond, "auth must register the connection")

	call, ok := presence.last()
	require.True(t, ok)
	assert.Equal(t, presenceCall{roomID: 1, userID: 2, online: true}, call)

	// Server-side broadcast reaches the member.
	out, err := model.NewSyncMessage(model.MsgUpdateTime, model.UpdateTimePayload{RoomID: 1, Time: 3, Timestamp: 1000})
	require.NoError(t, err)
	adapter.Broadcast(1, out, nil)
	got := readMessage(t, ws)
	assert.Equal(t, model.MsgUpdateTime, got.Type)

	// Inbound application messages reach the registered handler.
	require.NoError(t, ws.WriteJSON(out))
	select {
	case msg := <-inbound:
		assert.Equal(t, model.MsgUpdateTime, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message never reached the handler")
	}

	ws.Close()
	require.Eventually(t, func() bool {
		_, ok := registry.Get(1, 2)
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "close must deregister the connection")
	call, ok = presence.last()
	require.True(t, ok)
	assert.False(t, call.online)
}

func TestWSConnSendRacingCloseDoesNotPanic(t *testing.T) {
	conn := &wsConn{
		id:   "send-vs-close",
		send: make(chan model.SyncMessage, 1),
		log:  zap.NewNop(),
	}
	msg := model.SyncMessage{Type: model.MsgPong}

	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 1000; i++ {
			_ = conn.Send(msg)
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		conn.closeSend()
	}()
	close(start)
	wg.Wait()

	assert.ErrorIs(t, conn.Send(msg), errConnClosed)
}

func TestWebSocketPingGetsPong(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adapter := NewWebSocketAdapter(testWSConfig(), NewRegistry(), &fakePresence{}, zap.NewNop())

	r := gin.New()
	r.GET("/ws", adapter.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ws := dialTestWS(t, srv)
	assert.Equal(t, model.MsgConnected, readMessage(t, ws).Type)

	require.NoError(t, ws.WriteJSON(model.SyncMessage{Type: model.MsgPing}))
	assert.Equal(t, model.MsgPong, readMessage(t, ws).Type)
}

func TestWebSocketUnauthenticatedCloseSkipsPresence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	presence := &fakePresence{}
	adapter := NewWebSocketAdapter(testWSConfig(), registry, presence, zap.NewNop())

	r := gin.New()
	r.GET("/ws", adapter.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ws := dialTestWS(t, srv)
	assert.Equal(t, model.MsgConnected, readMessage(t, ws).Type)
	ws.Close()

	time.Sleep(100 * time.Millisecond)
	_, ok := presence.last()
	assert.False(t, ok, "no presence change without auth")
	rooms, conns := registry.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, conns)
}
