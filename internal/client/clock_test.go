package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/happy-game/sync-player/internal/model"
)

func TestClockUnknownBeforeFirstMessage(t *testing.T) {
	c := NewPlaybackClock()
	_, ok := c.Position(time.Now())
	assert.False(t, ok)
}

func TestClockExtrapolatesWhilePlaying(t *testing.T) {
	c := NewPlaybackClock()
	base := time.UnixMilli(1_700_000_000_000)
	c.applyTime(model.UpdateTimePayload{
		Time:      10,
		Timestamp: base.UnixMilli(),
		VideoID:   3,
	})

	pos, ok := c.Position(base.Add(2500 * time.Millisecond))
	assert.True(t, ok)
	assert.InDelta(t, 12.5, pos, 1e-9)
	assert.Equal(t, uint(3), c.VideoID())
}

func TestClockHoldsWhilePaused(t *testing.T) {
	c := NewPlaybackClock()
	base := time.UnixMilli(1_700_000_000_000)
	c.applyTime(model.UpdateTimePayload{
		Paused:    true,
		Time:      30,
		Timestamp: base.UnixMilli(),
	})

	pos, ok := c.Position(base.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 30.0, pos)
	assert.True(t, c.Paused())
}

func TestClockPauseFreezesExtrapolatedPosition(t *testing.T) {
	c := NewPlaybackClock()
	base := time.UnixMilli(1_700_000_000_000)
	c.applyTime(model.UpdateTimePayload{
		Time:      10,
		Timestamp: base.UnixMilli(),
	})

	// Pause arrives 4s into playback: position freezes at 14.
	c.applyPause(true, base.Add(4*time.Second).UnixMilli())
	pos, ok := c.Position(base.Add(time.Hour))
	assert.True(t, ok)
	assert.InDelta(t, 14.0, pos, 1e-9)

	// Resume: extrapolation continues from the frozen position.
	resumeAt := base.Add(10 * time.Second)
	c.applyPause(false, resumeAt.UnixMilli())
	pos, ok = c.Position(resumeAt.Add(time.Second))
	assert.True(t, ok)
	assert.InDelta(t, 15.0, pos, 1e-9)
}

func TestClockSwitchRestartsFromZero(t *testing.T) {
	c := NewPlaybackClock()
	base := time.UnixMilli(1_700_000_000_000)
	c.applyTime(model.UpdateTimePayload{Time: 55, Timestamp: base.UnixMilli(), VideoID: 1})

	c.applySwitch(9, base.Add(time.Minute).UnixMilli())
	pos, ok := c.Position(base.Add(time.Minute).Add(3 * time.Second))
	assert.True(t, ok)
	assert.InDelta(t, 3.0, pos, 1e-9)
	assert.Equal(t, uint(9), c.VideoID())
	assert.False(t, c.Paused())
}
