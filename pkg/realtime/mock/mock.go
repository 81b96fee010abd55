// Package mock provides test doubles for the realtime package interfaces.
//
// Use Provider to verify Open calls and feed scripted turn event streams.
// Each call to Open consumes the next script entry; the returned Turn plays
// its events in order and then closes the event channel, mimicking a real
// exchange that ends with EventDone.
//
// Example:
//
//	p := &mock.Provider{Script: [][]realtime.TurnEvent{
//	    mock.Spoken("Hello there!", 3),
//	}}
//	handle, _ := p.Open(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/malhajar17/moentreprise/pkg/realtime"
)

// OpenCall records a single invocation of Provider.Open.
type OpenCall struct {
	// Ctx is the context passed to Open.
	Ctx context.Context
	// Cfg is the TurnConfig passed to Open.
	Cfg realtime.TurnConfig
}

// Provider is a mock implementation of realtime.Provider.
type Provider struct {
	mu sync.Mutex

	// Script holds one event sequence per expected Open call, consumed in
	// order. When the script is exhausted, Open replays the last entry, so a
	// single-entry script serves any number of turns.
	Script [][]realtime.TurnEvent

	// ScriptFn, if non-nil, overrides Script: it is called with each turn's
	// config and its result is played instead.
	ScriptFn func(cfg realtime.TurnConfig) []realtime.TurnEvent

	// OpenErr, if non-nil, is returned as the error from Open.
	OpenErr error

	// OpenCalls records every call to Open in order.
	OpenCalls []OpenCall

	// consumed counts script entries already played.
	consumed int
}

// Open records the call and returns a Turn playing the next scripted events.
func (p *Provider) Open(ctx context.Context, cfg realtime.TurnConfig) (realtime.TurnHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = append(p.OpenCalls, OpenCall{Ctx: ctx, Cfg: cfg})
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}

	var events []realtime.TurnEvent
	switch {
	case p.ScriptFn != nil:
		events = p.ScriptFn(cfg)
	case len(p.Script) > 0:
		idx := p.consumed
		if idx >= len(p.Script) {
			idx = len(p.Script) - 1
		}
		events = p.Script[idx]
		p.consumed++
	}
	return NewTurn(events), nil
}

// Calls returns a copy of the recorded Open calls. Thread-safe.
func (p *Provider) Calls() []OpenCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]OpenCall, len(p.OpenCalls))
	copy(out, p.OpenCalls)
	return out
}

// Reset clears all recorded calls and rewinds the script. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = nil
	p.consumed = 0
}

// Ensure Provider implements realtime.Provider at compile time.
var _ realtime.Provider = (*Provider)(nil)

// Turn is a mock implementation of realtime.TurnHandle. Its event channel is
// pre-filled with the scripted events and already closed, so callers can
// drain it without coordination.
type Turn struct {
	mu sync.Mutex

	events chan realtime.TurnEvent

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewTurn builds a Turn that plays the given events and then signals
// end-of-turn by closing its channel.
func NewTurn(events []realtime.TurnEvent) *Turn {
	ch := make(chan realtime.TurnEvent, len(events))
	for _, evt := range events {
		ch <- evt
	}
	close(ch)
	return &Turn{events: ch}
}

// Events returns the scripted event stream.
func (t *Turn) Events() <-chan realtime.TurnEvent {
	return t.events
}

// Close records the call and returns CloseErr.
func (t *Turn) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CloseCallCount++
	return t.CloseErr
}

// Ensure Turn implements realtime.TurnHandle at compile time.
var _ realtime.TurnHandle = (*Turn)(nil)

// ── Script builders ──────────────────────────────────────────────────────────

// Spoken builds the event sequence of an ordinary spoken turn: the text as a
// single delta, the requested number of audio chunks, and a final EventDone.
func Spoken(text string, audioChunks int) []realtime.TurnEvent {
	events := make([]realtime.TurnEvent, 0, audioChunks+2)
	if text != "" {
		events = append(events, realtime.TurnEvent{Type: realtime.EventTextDelta, Text: text})
	}
	for i := 0; i < audioChunks; i++ {
		events = append(events, realtime.TurnEvent{Type: realtime.EventAudioDelta, Audio: []byte{0x00, 0x01}})
	}
	return append(events, realtime.TurnEvent{Type: realtime.EventDone})
}

// SpokenWithSelection is Spoken plus a completed select_next_speaker call
// carrying the given speaker index, placed before the final EventDone.
func SpokenWithSelection(text string, audioChunks int, speakerIndex string) []realtime.TurnEvent {
	events := Spoken(text, audioChunks)
	done := events[len(events)-1]
	events = events[:len(events)-1]
	args := `{"speaker_index":"` + speakerIndex + `"}`
	events = append(events,
		realtime.TurnEvent{Type: realtime.EventToolCallDelta, ToolName: "select_next_speaker", ToolArgs: args},
		realtime.TurnEvent{Type: realtime.EventToolCallDone, ToolName: "select_next_speaker", ToolArgs: args},
	)
	return append(events, done)
}

// Failed builds the event sequence of a turn that ends in a channel error.
func Failed(code, message string) []realtime.TurnEvent {
	return []realtime.TurnEvent{{
		Type: realtime.EventError,
		Err:  &realtime.ChannelError{Code: code, Message: message},
	}}
}
