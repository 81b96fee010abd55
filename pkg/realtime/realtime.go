// Package realtime defines the Provider interface for streaming conversational
// backends.
//
// A realtime provider wraps a low-latency voice model service (e.g., the OpenAI
// Realtime API) that generates spoken responses as an interleaved stream of
// text fragments, audio fragments, and structured function-call events.
//
// Unlike a long-lived duplex session, the central abstraction here is the
// TurnHandle: exactly one request/response exchange per persona turn. The
// orchestrator opens a handle, drains its event stream to completion, and
// closes it, and the next turn opens a fresh exchange. This keeps every turn's
// context fully under the orchestrator's control instead of the provider's.
//
// All implementations must be safe for concurrent use.
package realtime

import (
	"context"
	"fmt"
)

// EventType discriminates the variants of a [TurnEvent].
type EventType int

const (
	// EventTextDelta carries an incremental text (or audio transcript) fragment.
	EventTextDelta EventType = iota

	// EventAudioDelta carries one decoded audio fragment (raw PCM16).
	EventAudioDelta

	// EventToolCallDelta carries a partial function-call argument fragment.
	// Fragments must be accumulated until the matching EventToolCallDone
	// arrives; partial arguments are never valid JSON on their own.
	EventToolCallDelta

	// EventToolCallDone signals that a function call's arguments are complete
	// and may be parsed.
	EventToolCallDone

	// EventDone signals the exchange completed normally. No further events
	// follow.
	EventDone

	// EventError signals the exchange terminated abnormally. Err is set.
	// No further events follow.
	EventError
)

// String returns the human-readable name of the event type.
func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text-delta"
	case EventAudioDelta:
		return "audio-delta"
	case EventToolCallDelta:
		return "tool-call-delta"
	case EventToolCallDone:
		return "tool-call-done"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// TurnEvent is one unit of a turn's response stream, emitted in arrival order.
type TurnEvent struct {
	Type EventType

	// Text is set for EventTextDelta.
	Text string

	// Audio is set for EventAudioDelta: one raw PCM16 fragment.
	Audio []byte

	// ToolName identifies the function for EventToolCallDelta and
	// EventToolCallDone. May be empty on early deltas if the provider has not
	// yet announced the call's name.
	ToolName string

	// ToolArgs is an argument fragment (EventToolCallDelta) or the complete
	// JSON-encoded arguments (EventToolCallDone).
	ToolArgs string

	// Err is set for EventError.
	Err error
}

// ToolDefinition describes a function the model may call during a turn.
type ToolDefinition struct {
	// Name is the function's unique identifier.
	Name string

	// Description explains when the model should call the function.
	Description string

	// Parameters is the JSON Schema describing the function's arguments.
	Parameters map[string]any
}

// TurnConfig carries everything needed for one exchange.
type TurnConfig struct {
	// Voice is the provider-specific voice identifier for synthesised speech.
	Voice string

	// Instructions is the persona directive for this turn. Per-turn overrides
	// are resolved by the caller before the exchange opens; the provider
	// never sees more than one directive per turn.
	Instructions string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxResponseTokens caps the response length. Zero means provider default.
	MaxResponseTokens int

	// Tools is the function set offered to the model for this turn.
	Tools []ToolDefinition

	// Prompt is the user-role text driving the response: trailing conversation
	// context plus the last utterance.
	Prompt string

	// HumanAudio, when non-nil, is a one-shot raw PCM16 payload of human
	// speech sent alongside the prompt. The caller is responsible for
	// consuming it exactly once.
	HumanAudio []byte
}

// TurnHandle is one open exchange. Callers must drain Events until it closes
// (after EventDone or EventError) and then call Close.
type TurnHandle interface {
	// Events returns the turn's event stream. The channel is closed after the
	// terminal EventDone or EventError has been delivered, or when the handle
	// is closed early.
	Events() <-chan TurnEvent

	// Close releases the exchange's resources. Safe to call more than once.
	Close() error
}

// Provider opens streaming exchanges against a conversational backend.
type Provider interface {
	// Open starts one exchange with the given configuration. The returned
	// handle's event stream begins producing immediately.
	Open(ctx context.Context, cfg TurnConfig) (TurnHandle, error)
}

// ChannelError is a transport or protocol failure reported by the backend
// mid-exchange. The orchestrator treats it as recoverable: the turn is marked
// failed and the conversation proceeds with a deterministic fallback speaker.
type ChannelError struct {
	// Code is the provider-specific error code, if any.
	Code string

	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *ChannelError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: channel error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime: channel error: %s", e.Message)
}
