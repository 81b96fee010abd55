package web_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/malhajar17/moentreprise/internal/observe"
	"github.com/malhajar17/moentreprise/internal/orchestrator"
	"github.com/malhajar17/moentreprise/internal/web"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// wsURL converts an httptest server URL to its ws:// equivalent.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// fakeConversation records engine interactions for the server tests.
type fakeConversation struct {
	gate *orchestrator.HumanGate

	mu      sync.Mutex
	started []string
	stops   int
	running bool

	startErr error
	startCh  chan string
}

func newFakeConversation() *fakeConversation {
	return &fakeConversation{
		gate:    orchestrator.NewHumanGate(testLogger()),
		startCh: make(chan string, 4),
	}
}

func (f *fakeConversation) Start(_ context.Context, topic string) error {
	f.mu.Lock()
	f.started = append(f.started, topic)
	err := f.startErr
	f.mu.Unlock()
	f.startCh <- topic
	return err
}

func (f *fakeConversation) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeConversation) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeConversation) Gate() *orchestrator.HumanGate { return f.gate }

func (f *fakeConversation) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// newTestServer spins up the web server against a fake conversation.
func newTestServer(t *testing.T) (*web.Server, *web.Hub, *fakeConversation, *httptest.Server) {
	t.Helper()

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	hub := web.NewHub(testLogger())
	conv := newFakeConversation()
	s, err := web.NewServer(web.ServerConfig{
		Addr:         ":0",
		Hub:          hub,
		Conversation: conv,
		Metrics:      metrics,
		Log:          testLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, hub, conv, srv
}

// dialWS opens a client connection to the test server's /ws endpoint.
func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv)+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// sendJSON writes one JSON message to the connection.
func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readFrame reads one outbound frame from the connection.
func readFrame(t *testing.T, conn *websocket.Conn) web.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f web.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return f
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// ── Broadcast ─────────────────────────────────────────────────────────────────

func TestHub_BroadcastReachesClient(t *testing.T) {
	_, hub, _, srv := newTestServer(t)
	conn := dialWS(t, srv)

	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client never registered")

	hub.Broadcast(web.Frame{Type: "persona_started", Speaker: "Marcus"})

	got := readFrame(t, conn)
	if got.Type != "persona_started" || got.Speaker != "Marcus" {
		t.Errorf("frame = %+v, want persona_started from Marcus", got)
	}
}

func TestHub_EventsBridge(t *testing.T) {
	_, hub, _, srv := newTestServer(t)
	conn := dialWS(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client never registered")

	ev := hub.Events()
	ev.PersonaFinished("Sarah", "Hello there", 640)
	ev.AudioChunk("Sarah", []byte{1, 2, 3})
	ev.HumanTurnStarted()
	ev.Status("phase", "interview started")
	ev.ConversationComplete()

	wants := []web.Frame{
		{Type: "persona_finished", Speaker: "Sarah", Text: "Hello there"},
		{Type: "audio_chunk", Speaker: "Sarah", Audio: []byte{1, 2, 3}},
		{Type: "human_turn_started"},
		{Type: "status", Kind: "phase", Detail: "interview started"},
		{Type: "conversation_complete"},
	}
	for i, want := range wants {
		got := readFrame(t, conn)
		if got.Type != want.Type {
			t.Fatalf("frame[%d].Type = %q, want %q", i, got.Type, want.Type)
		}
		if got.Speaker != want.Speaker || got.Text != want.Text ||
			got.Kind != want.Kind || got.Detail != want.Detail {
			t.Errorf("frame[%d] = %+v, want %+v", i, got, want)
		}
		if want.Audio != nil && string(got.Audio) != string(want.Audio) {
			t.Errorf("frame[%d].Audio = %v, want %v", i, got.Audio, want.Audio)
		}
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	_, hub, _, srv := newTestServer(t)
	conn := dialWS(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client never registered")

	_ = conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool { return hub.ClientCount() == 0 }, "client never unregistered")
}

// ── Inbound messages ──────────────────────────────────────────────────────────

func TestServer_StartMessageLaunchesConversation(t *testing.T) {
	_, _, conv, srv := newTestServer(t)
	conn := dialWS(t, srv)

	sendJSON(t, conn, map[string]string{"type": "start", "topic": "I need a website for my flower shop"})

	select {
	case topic := <-conv.startCh:
		if topic != "I need a website for my flower shop" {
			t.Errorf("started with topic %q", topic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("conversation never started")
	}
}

func TestServer_StartWhileRunningBroadcastsStatus(t *testing.T) {
	_, hub, conv, srv := newTestServer(t)
	conv.startErr = orchestrator.ErrAlreadyRunning
	conn := dialWS(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client never registered")

	sendJSON(t, conn, map[string]string{"type": "start", "topic": "another one"})

	got := readFrame(t, conn)
	if got.Type != "status" || !strings.Contains(got.Detail, "already running") {
		t.Errorf("frame = %+v, want already-running status", got)
	}
}

func TestServer_HumanTextReachesGate(t *testing.T) {
	_, _, conv, srv := newTestServer(t)
	conn := dialWS(t, srv)

	sendJSON(t, conn, map[string]string{"type": "human_text", "text": "I sell tulips"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	in, ok := conv.gate.Await(ctx)
	if !ok {
		t.Fatal("gate never received the submission")
	}
	if in.Text != "I sell tulips" {
		t.Errorf("gate text = %q", in.Text)
	}
	if in.Audio != nil {
		t.Error("text submission should carry no audio")
	}
}

func TestServer_HumanAudioDecoded(t *testing.T) {
	_, _, conv, srv := newTestServer(t)
	conn := dialWS(t, srv)

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	sendJSON(t, conn, map[string]string{
		"type":  "human_audio",
		"text":  "(voice reply)",
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	in, ok := conv.gate.Await(ctx)
	if !ok {
		t.Fatal("gate never received the submission")
	}
	if string(in.Audio) != string(pcm) {
		t.Errorf("gate audio = %v, want %v", in.Audio, pcm)
	}
}

func TestServer_StopMessage(t *testing.T) {
	_, _, conv, srv := newTestServer(t)
	conn := dialWS(t, srv)

	sendJSON(t, conn, map[string]string{"type": "stop"})

	waitFor(t, func() bool { return conv.stopCount() == 1 }, "Stop never called")
}

func TestServer_MalformedMessageIgnored(t *testing.T) {
	_, hub, conv, srv := newTestServer(t)
	conn := dialWS(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client never registered")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The connection stays up and later messages still work.
	sendJSON(t, conn, map[string]string{"type": "stop"})
	waitFor(t, func() bool { return conv.stopCount() == 1 }, "Stop never called after bad frame")
}

// ── HTTP endpoints ────────────────────────────────────────────────────────────

func TestServer_Healthz(t *testing.T) {
	_, _, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status field = %q, want ok", body.Status)
	}
}

func TestServer_ReadyzReportsEngineState(t *testing.T) {
	_, _, conv, srv := newTestServer(t)
	conv.mu.Lock()
	conv.running = true
	conv.mu.Unlock()

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Checks["engine"] != "running" {
		t.Errorf("engine check = %q, want running", body.Checks["engine"])
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	_, _, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	if _, err := web.NewServer(web.ServerConfig{Conversation: newFakeConversation()}); err == nil {
		t.Error("NewServer without a hub should fail")
	}
	if _, err := web.NewServer(web.ServerConfig{Hub: web.NewHub(testLogger())}); err == nil {
		t.Error("NewServer without a conversation should fail")
	}
}
