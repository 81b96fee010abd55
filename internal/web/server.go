package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/malhajar17/moentreprise/internal/observe"
	"github.com/malhajar17/moentreprise/internal/orchestrator"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Conversation is the engine surface the server drives. Satisfied by
// [orchestrator.Engine].
type Conversation interface {
	Start(ctx context.Context, topic string) error
	Stop()
	Running() bool
	Gate() *orchestrator.HumanGate
}

// inbound is one client-to-server WebSocket message.
type inbound struct {
	// Type is one of: start, human_text, human_audio, stop.
	Type string `json:"type"`

	// Topic seeds the conversation on a start message.
	Topic string `json:"topic,omitempty"`

	// Text carries human input for human_text and human_audio.
	Text string `json:"text,omitempty"`

	// Audio is base64-encoded pcm16 on a human_audio message.
	Audio string `json:"audio,omitempty"`
}

// Server serves the WebSocket conversation endpoint plus health and metrics.
type Server struct {
	addr string
	hub  *Hub
	conv Conversation
	log  *slog.Logger

	httpSrv *http.Server

	// convCtx is the context conversations run under, detached from any one
	// client connection.
	convCtx context.Context
}

// ServerConfig holds the required server collaborators.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Hub distributes conversation events. Required.
	Hub *Hub

	// Conversation is the engine to drive. Required.
	Conversation Conversation

	// Metrics instruments HTTP handling. Nil uses the default instance.
	Metrics *observe.Metrics

	// Log is the server logger. Nil uses the default.
	Log *slog.Logger
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Hub == nil {
		return nil, errors.New("web: ServerConfig.Hub is required")
	}
	if cfg.Conversation == nil {
		return nil, errors.New("web: ServerConfig.Conversation is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	s := &Server{
		addr: cfg.Addr,
		hub:  cfg.Hub,
		conv: cfg.Conversation,
		log:  cfg.Log,
	}

	mw := observe.Middleware(cfg.Metrics)

	mux := http.NewServeMux()
	// The WebSocket route bypasses the middleware: Accept needs the raw
	// ResponseWriter to hijack the connection.
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /healthz", mw(http.HandlerFunc(s.handleHealthz)))
	mux.Handle("GET /readyz", mw(http.HandlerFunc(s.handleReadyz)))
	mux.Handle("GET /metrics", mw(promhttp.Handler()))

	s.httpSrv = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	return s, nil
}

// Handler exposes the route mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.convCtx = ctx

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return nil
}

// ── WebSocket ─────────────────────────────────────────────────────────────────

// handleWS upgrades the connection, registers it with the hub, and reads
// client messages until the peer disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := s.hub.add(r.Context(), conn)
	defer s.hub.remove(c)
	s.log.Info("websocket client connected", "clients", s.hub.ClientCount())

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			s.log.Debug("websocket client disconnected", "err", err)
			return
		}
		s.dispatch(data)
	}
}

// dispatch routes one inbound client message.
func (s *Server) dispatch(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("malformed client message", "err", err)
		return
	}

	switch msg.Type {
	case "start":
		s.startConversation(msg.Topic)

	case "human_text":
		s.conv.Gate().SubmitText(msg.Text)

	case "human_audio":
		audio, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			s.log.Warn("human audio payload is not valid base64", "err", err)
			return
		}
		s.conv.Gate().SubmitAudio(msg.Text, audio)

	case "stop":
		s.conv.Stop()

	default:
		s.log.Warn("unknown client message type", "type", msg.Type)
	}
}

// startConversation launches the engine loop off the server's root context,
// so the conversation survives the client connection that started it.
func (s *Server) startConversation(topic string) {
	ctx := s.convCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		if err := s.conv.Start(ctx, topic); err != nil {
			if errors.Is(err, orchestrator.ErrAlreadyRunning) {
				s.hub.Broadcast(Frame{Type: "status", Kind: "engine", Detail: "conversation already running"})
				return
			}
			s.log.Error("conversation failed", "err", err)
			s.hub.Broadcast(Frame{Type: "status", Kind: "engine", Detail: "conversation failed: " + err.Error()})
		}
	}()
}

// ── Health ────────────────────────────────────────────────────────────────────

// healthResult is the JSON response body for health endpoints.
type healthResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealthz is a liveness probe; a process that serves HTTP is alive.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResult{Status: "ok"})
}

// handleReadyz reports whether the server can host a conversation right now,
// with the engine and client states broken out.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]string{
		"engine": "idle",
	}
	if s.conv.Running() {
		checks["engine"] = "running"
	}
	checks["clients"] = fmt.Sprintf("%d connected", s.hub.ClientCount())

	writeJSON(w, http.StatusOK, healthResult{Status: "ok", Checks: checks})
}

// writeJSON encodes v as JSON with the given status code. On encoding failure
// it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

var _ Conversation = (*orchestrator.Engine)(nil)
