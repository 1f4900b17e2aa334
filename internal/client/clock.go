package client

import (
	"sync"
	"time"

	"github.com/happy-game/sync-player/internal/model"
)

// PlaybackClock mirrors the room's authoritative play status on the client.
// It stores the last announced baseline and extrapolates the position from
// the wall clock while playback runs, so callers can render a smooth time
// between sync messages.
type PlaybackClock struct {
	mu        sync.RWMutex
	known     bool
	paused    bool
	time      float64 // seconds at baseline
	timestamp int64   // unix ms of baseline
	videoID   uint
}

// NewPlaybackClock creates a clock with no known state.
func NewPlaybackClock() *PlaybackClock {
	return &PlaybackClock{}
}

// Position returns the extrapolated playback position in seconds at now.
// Before any sync message arrives it reports false.
func (c *PlaybackClock) Position(now time.Time) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.known {
		return 0, false
	}
	if c.paused {
		return c.time, true
	}
	return c.time + float64(now.UnixMilli()-c.timestamp)/1000.0, true
}

// Paused reports whether playback is paused at the last known baseline.
func (c *PlaybackClock) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// VideoID returns the active playlist item id, zero when nothing played yet.
func (c *PlaybackClock) VideoID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.videoID
}

// applyTime replaces the whole baseline.
func (c *PlaybackClock) applyTime(p model.UpdateTimePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = true
	c.paused = p.Paused
	c.time = p.Time
	c.timestamp = p.Timestamp
	c.videoID = p.VideoID
}

// applyPause flips the pause flag at a new baseline timestamp. The position
// keeps its last value, matching the server's partial update.
func (c *PlaybackClock) applyPause(paused bool, timestamp int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known && !c.paused && paused {
		// Freeze at the extrapolated position before stopping the clock.
		c.time += float64(timestamp-c.timestamp) / 1000.0
	}
	c.known = true
	c.paused = paused
	c.timestamp = timestamp
}

// applySwitch restarts the clock at position zero for a new item.
func (c *PlaybackClock) applySwitch(videoID uint, timestamp int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = true
	c.paused = false
	c.time = 0
	c.timestamp = timestamp
	c.videoID = videoID
}
