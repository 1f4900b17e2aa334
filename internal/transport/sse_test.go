package transport

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/model"
)

func testSSEConfig() *config.Config {
	cfg := &config.Config{SyncProtocol: config.ProtocolSSE}
	cfg.SSEHeartbeat = 50 * time.Millisecond
	return cfg
}

// readEvent blocks until the next data event and decodes it, skipping
// heartbeat comments.
func readEvent(t *testing.T, r *bufio.Reader) model.SyncMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if strings.HasPrefix(line, "data: ") {
			var msg model.SyncMessage
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
			return msg
		}
	}
	t.Fatal("no event before deadline")
	return model.SyncMessage{}
}

func TestSSEConnectStreamsAndTracksPresence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	presence := &fakePresence{}
	adapter := NewSSEAdapter(testSSEConfig(), registry, presence, zap.NewNop())

	r := gin.New()
	r.GET("/sse/connect", adapter.HandleConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/sse/connect?userId=2&roomId=1")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, model.MsgConnected, readEvent(t, reader).Type)

	_, ok := registry.Get(1, 2)
	require.True(t, ok, "connect registers the stream")
	call, ok := presence.last()
	require.True(t, ok)
	assert.Equal(t, presenceCall{roomID: 1, userID: 2, online: true}, call)

	msg, err := model.NewSyncMessage(model.MsgSwitchVideo, model.SwitchVideoPayload{RoomID: 1, VideoID: 4})
	require.NoError(t, err)
	adapter.Broadcast(1, msg, nil)

	got := readEvent(t, reader)
	assert.Equal(t, model.MsgSwitchVideo, got.Type)
	var payload model.SwitchVideoPayload
	require.NoError(t, got.DecodePayload(&payload))
	assert.Equal(t, uint(4), payload.VideoID)

	resp.Body.Close()
	require.Eventually(t, func() bool {
		_, ok := registry.Get(1, 2)
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "client close must deregister the stream")
	call, ok = presence.last()
	require.True(t, ok)
	assert.False(t, call.online)
}

func TestSSEConnectRejectsBadParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adapter := NewSSEAdapter(testSSEConfig(), NewRegistry(), &fakePresence{}, zap.NewNop())

	r := gin.New()
	r.GET("/sse/connect", adapter.HandleConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	for _, query := range []string{"", "?userId=2", "?userId=abc&roomId=1", "?userId=0&roomId=1"} {
		resp, err := http.Get(srv.URL + "/sse/connect" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %q", query)
	}
}

func TestSSEDisconnectGuardsLateSends(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	adapter := NewSSEAdapter(testSSEConfig(), registry, &fakePresence{}, zap.NewNop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	conn := &sseConn{
		id:      "late-send",
		userID:  2,
		roomID:  1,
		writer:  c.Writer,
		flusher: w,
		done:    make(chan struct{}),
	}
	adapter.track(conn, true)
	registry.Add(conn)

	adapter.disconnect(conn)

	// A broadcast that snapshotted the registry before the disconnect must
	// not write to the response anymore.
	err := conn.Send(model.SyncMessage{Type: model.MsgPong})
	assert.ErrorIs(t, err, errConnClosed)
	assert.Empty(t, w.Body.String())
	_, ok := registry.Get(1, 2)
	assert.False(t, ok)
}

func TestSSEStopClosesStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	adapter := NewSSEAdapter(testSSEConfig(), registry, &fakePresence{}, zap.NewNop())

	r := gin.New()
	r.GET("/sse/connect", adapter.HandleConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/sse/connect?userId=2&roomId=1")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, model.MsgConnected, readEvent(t, reader).Type)

	require.NoError(t, adapter.Stop())
	require.Eventually(t, func() bool {
		rooms, conns := registry.Stats()
		return rooms == 0 && conns == 0
	}, 2*time.Second, 10*time.Millisecond)
}
