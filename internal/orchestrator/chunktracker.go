package orchestrator

import (
	"context"
	"sync"
	"time"
)

const (
	// defaultChunkDuration is the assumed playback length of one audio
	// fragment. The value is an empirical tuning constant for the remote
	// player, not a timing contract: playback completion is never observable
	// from this side, so the engine waits out an estimate instead.
	defaultChunkDuration = 430 * time.Millisecond

	// defaultSafetyBuffer pads the estimate because real audio often runs
	// slightly longer than chunks × duration, and starting the next speaker
	// early talks over the tail of the current one.
	defaultSafetyBuffer = 1 * time.Second
)

// ChunkTracker counts streamed audio fragments per speaker and converts the
// count into a playback-completion wait. Safe for concurrent use: the engine
// tracks from the stream-draining path while presentation callbacks run.
type ChunkTracker struct {
	mu            sync.Mutex
	chunks        map[string]int
	chunkDuration time.Duration
	safetyBuffer  time.Duration
}

// TrackerOption configures a [ChunkTracker] during construction.
type TrackerOption func(*ChunkTracker)

// WithChunkDuration overrides the assumed per-fragment playback length.
func WithChunkDuration(d time.Duration) TrackerOption {
	return func(t *ChunkTracker) {
		if d > 0 {
			t.chunkDuration = d
		}
	}
}

// WithSafetyBuffer overrides the fixed padding added to every wait.
func WithSafetyBuffer(d time.Duration) TrackerOption {
	return func(t *ChunkTracker) {
		if d >= 0 {
			t.safetyBuffer = d
		}
	}
}

// NewChunkTracker creates a tracker with the default timing constants.
func NewChunkTracker(opts ...TrackerOption) *ChunkTracker {
	t := &ChunkTracker{
		chunks:        make(map[string]int),
		chunkDuration: defaultChunkDuration,
		safetyBuffer:  defaultSafetyBuffer,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records one audio fragment for the named speaker.
func (t *ChunkTracker) Track(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks[name]++
}

// Chunks returns the fragment count recorded for the named speaker.
func (t *ChunkTracker) Chunks(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chunks[name]
}

// Reset clears the fragment count for the named speaker, typically right
// before their next turn starts streaming.
func (t *ChunkTracker) Reset(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.chunks, name)
}

// WaitTime returns the estimated remaining playback time for the named
// speaker: chunks × chunk duration + safety buffer. A speaker with zero
// recorded chunks still yields the buffer.
func (t *ChunkTracker) WaitTime(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.chunks[name])*t.chunkDuration + t.safetyBuffer
}

// Wait blocks for the speaker's estimated playback time or until ctx is
// cancelled, whichever comes first.
func (t *ChunkTracker) Wait(ctx context.Context, name string) {
	timer := time.NewTimer(t.WaitTime(name))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
