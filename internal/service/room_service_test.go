package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happy-game/sync-player/internal/errs"
	"github.com/happy-game/sync-player/internal/model"
)

func newRoomFixture(t *testing.T) (*RoomService, *UserService) {
	t.Helper()
	store := newTestStore(t)
	return NewRoomService(store, testLogger()), NewUserService(store, testLogger())
}

func TestCreateRoomIdempotentByName(t *testing.T) {
	rooms, _ := newRoomFixture(t)

	first, err := rooms.Create("movie-night", "")
	require.NoError(t, err)
	second, err := rooms.Create("movie-night", "ignored")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestJoinChecksPassword(t *testing.T) {
	rooms, users := newRoomFixture(t)
	room, err := rooms.Create("locked", "hunter2")
	require.NoError(t, err)
	user, err := users.Login("alice")
	require.NoError(t, err)

	assert.ErrorIs(t, rooms.Join(room.ID, user.ID, "wrong"), errs.ErrInvalidPassword)
	require.NoError(t, rooms.Join(room.ID, user.ID, "hunter2"))
	assert.ErrorIs(t, rooms.Join(room.ID, user.ID, "hunter2"), errs.ErrAlreadyInRoom)
}

func TestJoinUnknownRoomOrUser(t *testing.T) {
	rooms, users := newRoomFixture(t)
	user, err := users.Login("bob")
	require.NoError(t, err)

	assert.ErrorIs(t, rooms.Join(999, user.ID, ""), errs.ErrRoomNotFound)
	assert.ErrorIs(t, rooms.Join(999, 888, ""), errs.ErrUserNotFound)
}

func TestLeaveRequiresMembership(t *testing.T) {
	rooms, users := newRoomFixture(t)
	room, err := rooms.Create("open", "")
	require.NoError(t, err)
	user, err := users.Login("carol")
	require.NoError(t, err)

	assert.ErrorIs(t, rooms.Leave(room.ID, user.ID), errs.ErrUserNotFound)
	require.NoError(t, rooms.Join(room.ID, user.ID, ""))
	require.NoError(t, rooms.Leave(room.ID, user.ID))
}

func TestLoginReturnsSameUser(t *testing.T) {
	_, users := newRoomFixture(t)

	first, err := users.Login("dave")
	require.NoError(t, err)
	again, err := users.Login("dave")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestPresenceBroadcastsUserListRefresh(t *testing.T) {
	store := newTestStore(t)
	rooms := NewRoomService(store, testLogger())
	users := NewUserService(store, testLogger())
	presence := NewPresenceService(store, testLogger())
	adapter := &fakeAdapter{}
	presence.Bind(adapter)

	room, err := rooms.Create("presence", "")
	require.NoError(t, err)
	user, err := users.Login("erin")
	require.NoError(t, err)
	require.NoError(t, rooms.Join(room.ID, user.ID, ""))

	require.NoError(t, presence.SetMemberOnline(room.ID, user.ID, true))

	online, err := rooms.OnlineUsers(room.ID)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "erin", online[0].Username)
	assert.True(t, online[0].Online)

	call := adapter.lastCall(t)
	assert.Equal(t, model.MsgUpdateUserList, call.msg.Type)
	assert.Equal(t, []uint{user.ID}, call.exclude)
}
