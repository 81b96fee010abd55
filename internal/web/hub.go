// Package web exposes the conversation over HTTP: a WebSocket endpoint that
// streams conversation events to browser clients and accepts human input, plus
// health and Prometheus metrics endpoints.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/malhajar17/moentreprise/internal/orchestrator"
)

// Frame is one outbound JSON message to connected clients.
type Frame struct {
	// Type identifies the event: persona_started, persona_finished,
	// audio_chunk, human_turn_started, human_turn_ended, status,
	// conversation_complete.
	Type string `json:"type"`

	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`

	// Audio is a pcm16 chunk; encoding/json renders it as base64.
	Audio []byte `json:"audio,omitempty"`

	// Kind and Detail carry status events.
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// sendBuffer is the per-client outbound queue depth. A client that cannot
// drain this many frames is dropped rather than stalling the broadcast.
const sendBuffer = 256

// client is one connected WebSocket peer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans conversation events out to every connected WebSocket client.
// Broadcast never blocks on a slow client.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends the frame to every connected client. Clients whose send
// queue is full are disconnected.
func (h *Hub) Broadcast(f Frame) {
	msg, err := json.Marshal(f)
	if err != nil {
		h.log.Error("broadcast frame marshal failed", "type", f.Type, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Events returns the orchestrator event sink that forwards every conversation
// event to the hub's clients.
func (h *Hub) Events() orchestrator.Events {
	return orchestrator.Events{
		PersonaStarted: func(name string) {
			h.Broadcast(Frame{Type: "persona_started", Speaker: name})
		},
		PersonaFinished: func(name, text string, audioBytes int) {
			h.Broadcast(Frame{Type: "persona_finished", Speaker: name, Text: text})
		},
		AudioChunk: func(name string, chunk []byte) {
			h.Broadcast(Frame{Type: "audio_chunk", Speaker: name, Audio: chunk})
		},
		HumanTurnStarted: func() {
			h.Broadcast(Frame{Type: "human_turn_started"})
		},
		HumanTurnEnded: func() {
			h.Broadcast(Frame{Type: "human_turn_ended"})
		},
		Status: func(kind, detail string) {
			h.Broadcast(Frame{Type: "status", Kind: kind, Detail: detail})
		},
		ConversationComplete: func() {
			h.Broadcast(Frame{Type: "conversation_complete"})
		},
	}
}

// add registers a client and starts its write pump.
func (h *Hub) add(ctx context.Context, conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop(ctx)
	return c
}

// remove unregisters a client. Safe to call more than once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// writeLoop drains the send queue onto the wire until the queue closes or the
// context ends.
func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
