package transport

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/model"
)

type mockConn struct {
	id     string
	userID uint
	roomID uint

	mu       sync.Mutex
	sent     []model.SyncMessage
	failSend bool
}

func newMockConn(roomID, userID uint) *mockConn {
	return &mockConn{id: uuid.New().String(), roomID: roomID, userID: userID}
}

func (c *mockConn) ID() string   { return c.id }
func (c *mockConn) UserID() uint { return c.userID }
func (c *mockConn) RoomID() uint { return c.roomID }

func (c *mockConn) Send(msg model.SyncMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("send buffer full")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) received() []model.SyncMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.SyncMessage(nil), c.sent...)
}

func TestRegistryReplaceOnReconnect(t *testing.T) {
	r := NewRegistry()
	old := newMockConn(1, 7)
	r.Add(old)

	fresh := newMockConn(1, 7)
	r.Add(fresh)

	got, ok := r.Get(1, 7)
	require.True(t, ok)
	assert.Equal(t, fresh.ID(), got.ID())

	// The stale channel's cleanup must not evict the replacement.
	assert.False(t, r.Remove(old))
	_, ok = r.Get(1, 7)
	assert.True(t, ok)

	assert.True(t, r.Remove(fresh))
	_, ok = r.Get(1, 7)
	assert.False(t, ok)
}

func TestRegistryStats(t *testing.T) {
	r := NewRegistry()
	r.Add(newMockConn(1, 1))
	r.Add(newMockConn(1, 2))
	r.Add(newMockConn(2, 3))

	rooms, conns := r.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 3, conns)
	assert.ElementsMatch(t, []uint{1, 2}, r.UserIDs(1))
}

func TestFanoutBroadcastExcludesListed(t *testing.T) {
	r := NewRegistry()
	alice := newMockConn(1, 1)
	bob := newMockConn(1, 2)
	carol := newMockConn(1, 3)
	other := newMockConn(2, 4)
	for _, c := range []*mockConn{alice, bob, carol, other} {
		r.Add(c)
	}

	f := &fanout{registry: r, log: zap.NewNop()}
	msg, err := model.NewSyncMessage(model.MsgUpdateTime, model.UpdateTimePayload{RoomID: 1, UserID: 2})
	require.NoError(t, err)
	f.Broadcast(1, msg, []uint{2})

	assert.Len(t, alice.received(), 1)
	assert.Empty(t, bob.received(), "originator must not receive its own update")
	assert.Len(t, carol.received(), 1)
	assert.Empty(t, other.received(), "other rooms must not see the broadcast")
}

func TestFanoutBroadcastIsolatesFailedMember(t *testing.T) {
	r := NewRegistry()
	broken := newMockConn(1, 1)
	broken.failSend = true
	healthy := newMockConn(1, 2)
	r.Add(broken)
	r.Add(healthy)

	f := &fanout{registry: r, log: zap.NewNop()}
	msg, err := model.NewSyncMessage(model.MsgUpdatePause, model.UpdatePausePayload{RoomID: 1})
	require.NoError(t, err)
	f.Broadcast(1, msg, nil)

	assert.Len(t, healthy.received(), 1)
}

func TestFanoutSendToUsers(t *testing.T) {
	r := NewRegistry()
	alice := newMockConn(1, 1)
	bob := newMockConn(1, 2)
	r.Add(alice)
	r.Add(bob)

	f := &fanout{registry: r, log: zap.NewNop()}
	msg, err := model.NewSyncMessage(model.MsgUpdateUserList, model.RoomPayload{RoomID: 1})
	require.NoError(t, err)
	f.SendToUsers(1, []uint{2, 99}, msg)

	assert.Empty(t, alice.received())
	assert.Len(t, bob.received(), 1)
}
