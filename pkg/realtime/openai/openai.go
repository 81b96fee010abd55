// Package openai implements the realtime.Provider interface for OpenAI's
// Realtime API.
//
// Each call to Open dials a fresh WebSocket to the Realtime endpoint,
// configures the session (voice, instructions, temperature, tools), submits
// the turn's prompt and optional human audio payload as a conversation
// item, requests a response, and translates the server's event stream into
// realtime.TurnEvent values until response.done or an error event arrives.
// Audio is transmitted as base64-encoded PCM16; fragments are decoded before
// emission.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/malhajar17/moentreprise/pkg/realtime"
)

// Compile-time assertions that Provider and turn satisfy the realtime interfaces.
var _ realtime.Provider = (*Provider)(nil)
var _ realtime.TurnHandle = (*turn)(nil)

const (
	defaultModel   = "gpt-4o-realtime-preview"
	defaultBaseURL = "wss://api.openai.com/v1/realtime"

	// eventBuffer sizes the outgoing event channel. Audio deltas arrive in
	// bursts; the buffer keeps the receive loop from stalling while the
	// orchestrator forwards fragments downstream.
	eventBuffer = 64
)

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the OpenAI model used for exchanges.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// ── Provider ───────────────────────────────────────────────────────────────────

// Provider implements realtime.Provider for OpenAI's Realtime API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
}

// New creates a new OpenAI Realtime Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Open dials the Realtime endpoint and starts one exchange.
func (p *Provider) Open(ctx context.Context, cfg realtime.TurnConfig) (realtime.TurnHandle, error) {
	wsURL := fmt.Sprintf("%s?model=%s", p.baseURL, p.model)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + p.apiKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: dial: %w", err)
	}

	turnCtx, cancel := context.WithCancel(context.Background())
	t := &turn{
		conn:      conn,
		events:    make(chan realtime.TurnEvent, eventBuffer),
		callNames: make(map[string]string),
		ctx:       turnCtx,
		cancel:    cancel,
	}

	if err := t.configure(cfg); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "configure failed")
		return nil, fmt.Errorf("openai: configure: %w", err)
	}

	go t.receiveLoop()

	return t, nil
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Modalities        []string  `json:"modalities"`
	Voice             string    `json:"voice,omitempty"`
	Instructions      string    `json:"instructions,omitempty"`
	Temperature       float64   `json:"temperature,omitempty"`
	MaxResponseTokens int       `json:"max_response_output_tokens,omitempty"`
	Tools             []oaiTool `json:"tools,omitempty"`
	InputAudioFormat  string    `json:"input_audio_format"`
	OutputAudioFormat string    `json:"output_audio_format"`
}

type oaiTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type createConversationItemMessage struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type conversationItem struct {
	Type    string             `json:"type"`
	Role    string             `json:"role,omitempty"`
	Content []conversationPart `json:"content,omitempty"`
}

type conversationPart struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"` // base64-encoded PCM16
}

type createResponseMessage struct {
	Type     string         `json:"type"`
	Response responseParams `json:"response"`
}

type responseParams struct {
	Modalities []string `json:"modalities"`
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

// serverErrorDetail represents the nested error object in an OpenAI Realtime
// error event: {"type":"error","error":{"type":"...","code":"...","message":"..."}}.
type serverErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type serverEvent struct {
	Type string `json:"type"`

	// response.audio.delta / response.text.delta / response.audio_transcript.delta /
	// response.function_call_arguments.delta
	Delta string `json:"delta,omitempty"`

	// response.output_item.added
	Item *outputItem `json:"item,omitempty"`

	// response.function_call_arguments.{delta,done}
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// error event
	Error *serverErrorDetail `json:"error,omitempty"`
}

type outputItem struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	CallID string `json:"call_id,omitempty"`
}

// ── turn ───────────────────────────────────────────────────────────────────────

type turn struct {
	conn   *websocket.Conn
	events chan realtime.TurnEvent

	// callNames maps call_id to function name, populated from
	// response.output_item.added so argument deltas that omit the name can
	// still be attributed.
	callNames map[string]string

	mu     sync.Mutex
	closed bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// configure sends session.update, the conversation item carrying the turn's
// prompt (and optional human audio), and response.create.
func (t *turn) configure(cfg realtime.TurnConfig) error {
	params := sessionParams{
		Modalities:        []string{"text", "audio"},
		Voice:             cfg.Voice,
		Instructions:      cfg.Instructions,
		Temperature:       cfg.Temperature,
		MaxResponseTokens: cfg.MaxResponseTokens,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
	}
	if len(cfg.Tools) > 0 {
		params.Tools = toOAITools(cfg.Tools)
	}
	if err := t.writeJSON(sessionUpdateMessage{Type: "session.update", Session: params}); err != nil {
		return err
	}

	item := conversationItem{Type: "message", Role: "user"}
	if len(cfg.HumanAudio) > 0 {
		item.Content = []conversationPart{
			{Type: "input_audio", Audio: base64.StdEncoding.EncodeToString(cfg.HumanAudio)},
			{Type: "input_text", Text: cfg.Prompt},
		}
	} else {
		item.Content = []conversationPart{
			{Type: "input_text", Text: cfg.Prompt},
		}
	}
	if err := t.writeJSON(createConversationItemMessage{Type: "conversation.item.create", Item: item}); err != nil {
		return err
	}

	return t.writeJSON(createResponseMessage{
		Type:     "response.create",
		Response: responseParams{Modalities: []string{"text", "audio"}},
	})
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (t *turn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("openai: marshal: %w", err)
	}
	return t.conn.Write(t.ctx, websocket.MessageText, data)
}

// receiveLoop reads events from the WebSocket until a terminal event arrives.
// It owns the events channel and closes it when it exits.
func (t *turn) receiveLoop() {
	defer t.closeEvents()

	for {
		_, data, err := t.conn.Read(t.ctx)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			t.emit(realtime.TurnEvent{
				Type: realtime.EventError,
				Err:  &realtime.ChannelError{Message: err.Error()},
			})
			return
		}

		var evt serverEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		if terminal := t.handleServerEvent(&evt); terminal {
			return
		}
	}
}

// handleServerEvent translates one server event. Returns true when the event
// was terminal and the loop should stop.
func (t *turn) handleServerEvent(evt *serverEvent) bool {
	switch evt.Type {
	case "response.audio.delta":
		if evt.Delta == "" {
			return false
		}
		audio, err := base64.StdEncoding.DecodeString(evt.Delta)
		if err != nil || len(audio) == 0 {
			return false
		}
		t.emit(realtime.TurnEvent{Type: realtime.EventAudioDelta, Audio: audio})

	case "response.text.delta", "response.audio_transcript.delta":
		if evt.Delta == "" {
			return false
		}
		t.emit(realtime.TurnEvent{Type: realtime.EventTextDelta, Text: evt.Delta})

	case "response.output_item.added":
		if evt.Item != nil && evt.Item.Type == "function_call" {
			t.callNames[evt.Item.CallID] = evt.Item.Name
		}

	case "response.function_call_arguments.delta":
		name := evt.Name
		if name == "" {
			name = t.callNames[evt.CallID]
		}
		t.emit(realtime.TurnEvent{
			Type:     realtime.EventToolCallDelta,
			ToolName: name,
			ToolArgs: evt.Delta,
		})

	case "response.function_call_arguments.done":
		name := evt.Name
		if name == "" {
			name = t.callNames[evt.CallID]
		}
		t.emit(realtime.TurnEvent{
			Type:     realtime.EventToolCallDone,
			ToolName: name,
			ToolArgs: evt.Arguments,
		})

	case "response.done":
		t.emit(realtime.TurnEvent{Type: realtime.EventDone})
		return true

	case "error":
		cerr := &realtime.ChannelError{Message: "unknown error"}
		if evt.Error != nil {
			cerr.Code = evt.Error.Code
			if evt.Error.Message != "" {
				cerr.Message = evt.Error.Message
			}
		}
		t.emit(realtime.TurnEvent{Type: realtime.EventError, Err: cerr})
		return true
	}
	return false
}

// emit delivers one event unless the turn has been cancelled.
func (t *turn) emit(evt realtime.TurnEvent) {
	select {
	case t.events <- evt:
	case <-t.ctx.Done():
	}
}

func (t *turn) closeEvents() {
	t.closeOnce.Do(func() {
		close(t.events)
	})
}

// toOAITools converts realtime.ToolDefinition slice to OpenAI Realtime tool format.
func toOAITools(tools []realtime.ToolDefinition) []oaiTool {
	out := make([]oaiTool, len(tools))
	for i, td := range tools {
		out[i] = oaiTool{
			Type:        "function",
			Name:        td.Name,
			Description: td.Description,
			Parameters:  td.Parameters,
		}
	}
	return out
}

// ── TurnHandle methods ─────────────────────────────────────────────────────────

// Events returns the turn's event stream.
func (t *turn) Events() <-chan realtime.TurnEvent { return t.events }

// Close terminates the exchange and releases all resources. Idempotent.
func (t *turn) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.conn.Close(websocket.StatusNormalClosure, "turn closed")
	return nil
}
