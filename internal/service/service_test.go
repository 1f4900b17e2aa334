package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/database"
	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/internal/transport"
)

// fakeAdapter records fan-outs instead of writing to sockets.
type fakeAdapter struct {
	mu         sync.Mutex
	broadcasts []broadcastCall
	handler    transport.MessageHandler
}

type broadcastCall struct {
	roomID  uint
	msg     model.SyncMessage
	exclude []uint
}

func (a *fakeAdapter) Broadcast(roomID uint, msg model.SyncMessage, excludeUserIDs []uint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcasts = append(a.broadcasts, broadcastCall{roomID: roomID, msg: msg, exclude: excludeUserIDs})
}

func (a *fakeAdapter) SendToUsers(roomID uint, userIDs []uint, msg model.SyncMessage) {}

func (a *fakeAdapter) UserIDsInRoom(roomID uint) []uint { return nil }

func (a *fakeAdapter) OnMessage(handler transport.MessageHandler) { a.handler = handler }

func (a *fakeAdapter) Start() error { return nil }
func (a *fakeAdapter) Stop() error  { return nil }

func (a *fakeAdapter) calls() []broadcastCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]broadcastCall(nil), a.broadcasts...)
}

func (a *fakeAdapter) lastCall(t *testing.T) broadcastCall {
	t.Helper()
	calls := a.calls()
	require.NotEmpty(t, calls)
	return calls[len(calls)-1]
}

func (a *fakeAdapter) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcasts = nil
}

// newTestStore opens a private in-memory sqlite database with the schema
// auto-migrated.
func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return database.NewStore(db)
}

func testLogger() *zap.Logger { return zap.NewNop() }
