// Package orchestrator drives the multi-party persona conversation: one
// realtime exchange per persona turn, stream aggregation, playback-estimate
// pacing, next-speaker resolution, and the human participation gate.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/malhajar17/moentreprise/internal/persona"
	"github.com/malhajar17/moentreprise/pkg/conversation"
	"github.com/malhajar17/moentreprise/pkg/realtime"
)

const (
	// defaultMaxTurns bounds the conversation so a scripting bug can never
	// run the roster forever.
	defaultMaxTurns = 30

	// defaultContextWindow is how many trailing history entries each prompt
	// carries.
	defaultContextWindow = 4

	// emptyRetryBudget is how many times a turn is reopened with a
	// reinforced prompt when the persona produced neither text nor audio.
	emptyRetryBudget = 2

	// errorPause separates a failed turn from its fallback successor.
	errorPause = 1 * time.Second
)

// ErrAlreadyRunning is returned by Start when a conversation is in flight.
var ErrAlreadyRunning = errors.New("orchestrator: conversation already running")

// WorkflowTrigger launches named side-effect workflows. Triggering is
// fire-and-forget: the turn loop never waits on a workflow.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, name, args string)
}

// Metrics is the instrumentation surface the engine reports into. A nil
// Metrics disables reporting.
type Metrics interface {
	TurnCompleted(ctx context.Context, persona string, d time.Duration)
	AudioChunk(ctx context.Context, persona string)
	SelectionFallback(ctx context.Context)
	ChannelError(ctx context.Context)
	HumanTimeout(ctx context.Context)
	ConversationActive(ctx context.Context, delta int)
}

// Config holds everything needed to create an [Engine].
//
// Required fields are Roster, Provider, and Policy. Gate, Tracker, Workflows,
// Events, and Metrics are optional; missing ones get working defaults or
// become no-ops.
type Config struct {
	// Roster is the fixed participant cast. Must not be nil.
	Roster *persona.Roster

	// Provider opens one realtime exchange per persona turn. Must not be nil.
	Provider realtime.Provider

	// Policy decides phase transitions and next speakers. Must not be nil.
	Policy Policy

	// Gate receives human contributions. Defaults to a gate with stock
	// timing.
	Gate *HumanGate

	// Tracker estimates audio playback completion. Defaults to a tracker
	// with stock timing.
	Tracker *ChunkTracker

	// Workflows launches persona-triggered side effects. Nil means workflow
	// tool calls are logged and dropped.
	Workflows WorkflowTrigger

	// Events carries presentation callbacks.
	Events Events

	// Metrics receives instrumentation. Nil disables it.
	Metrics Metrics

	// MaxTurns caps turns of any kind, persona and human alike; zero means
	// the default.
	MaxTurns int

	// ContextWindow is the trailing history size in prompts; zero means the
	// default.
	ContextWindow int

	// TurnDelay is an optional pause between turns to keep pacing natural.
	TurnDelay time.Duration

	// Log is the engine logger. Nil uses the default.
	Log *slog.Logger
}

// Engine runs one conversation at a time over a fixed roster: it opens a
// realtime exchange per persona turn, aggregates the streamed response,
// waits out the audio playback estimate, and asks the policy where to go
// next. All mutation happens on the single turn loop; the exported surface
// is safe for concurrent use.
type Engine struct {
	roster    *persona.Roster
	provider  realtime.Provider
	policy    Policy
	gate      *HumanGate
	tracker   *ChunkTracker
	selector  *Selector
	workflows WorkflowTrigger
	events    Events
	metrics   Metrics

	maxTurns      int
	contextWindow int
	turnDelay     time.Duration
	log           *slog.Logger

	running atomic.Bool

	mu      sync.Mutex
	id      string
	turn    int
	phase   Phase
	history []conversation.Entry

	// One-shot state consumed by the next persona turn.
	pendingOverride string
	pendingAudio    []byte
}

// New creates an Engine from the given configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.Roster == nil {
		return nil, errors.New("orchestrator: Roster must not be nil")
	}
	if cfg.Provider == nil {
		return nil, errors.New("orchestrator: Provider must not be nil")
	}
	if cfg.Policy == nil {
		return nil, errors.New("orchestrator: Policy must not be nil")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	gate := cfg.Gate
	if gate == nil {
		gate = NewHumanGate(log)
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewChunkTracker()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	window := cfg.ContextWindow
	if window <= 0 {
		window = defaultContextWindow
	}

	return &Engine{
		roster:        cfg.Roster,
		provider:      cfg.Provider,
		policy:        cfg.Policy,
		gate:          gate,
		tracker:       tracker,
		selector:      NewSelector(cfg.Roster, log),
		workflows:     cfg.Workflows,
		events:        cfg.Events,
		metrics:       cfg.Metrics,
		maxTurns:      maxTurns,
		contextWindow: window,
		turnDelay:     cfg.TurnDelay,
		log:           log,
	}, nil
}

// Gate returns the human input gate, for wiring to the presentation layer.
func (e *Engine) Gate() *HumanGate { return e.gate }

// Running reports whether a conversation is in flight.
func (e *Engine) Running() bool { return e.running.Load() }

// History returns a snapshot of the conversation so far.
func (e *Engine) History() []conversation.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]conversation.Entry, len(e.history))
	copy(out, e.history)
	return out
}

// Stop requests a cooperative stop. The flag is observed at turn boundaries
// only; an in-flight exchange completes naturally.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Start runs a conversation to completion, blocking until it ends. topic,
// when non-empty, seeds the history as the human's opening contribution so
// the first persona addresses it. Only one conversation can run at a time.
func (e *Engine) Start(ctx context.Context, topic string) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	e.mu.Lock()
	e.id = conversation.NewID()
	e.turn = 0
	e.history = nil
	e.pendingOverride = ""
	e.pendingAudio = nil
	if topic != "" {
		e.history = append(e.history, conversation.Entry{
			Speaker:   persona.Human,
			Text:      topic,
			Timestamp: time.Now(),
		})
	}
	id := e.id
	e.mu.Unlock()

	phase, next := e.policy.Start()
	e.setPhase(phase)
	e.log.Info("conversation started", "conversation", id, "phase", phase)
	e.reportActive(ctx, 1)
	defer func() {
		e.reportActive(ctx, -1)
		e.running.Store(false)
		e.gate.Clear()
		e.events.conversationComplete()
		e.log.Info("conversation ended", "conversation", id, "turns", e.Turn())
	}()

	lastPersona := next
	for {
		if !e.running.Load() || ctx.Err() != nil {
			return nil
		}

		// Human turns count against the cap the same as persona turns.
		if e.Turn() >= e.maxTurns {
			e.log.Info("turn cap reached", "conversation", id, "max_turns", e.maxTurns)
			return nil
		}

		var res Resolution
		if next == e.roster.HumanIndex() {
			res = e.humanTurn(ctx, lastPersona)
		} else {
			lastPersona = next
			res = e.personaTurn(ctx, next)
		}

		if res.Status != "" {
			e.events.status("phase", res.Status)
		}
		e.setPhase(res.Phase)
		e.setOverride(res.Override)
		if res.End {
			return nil
		}
		next = res.Next

		if e.turnDelay > 0 {
			select {
			case <-time.After(e.turnDelay):
			case <-ctx.Done():
			}
		}
	}
}

// personaTurn runs one complete persona exchange and resolves the next step.
func (e *Engine) personaTurn(ctx context.Context, idx int) Resolution {
	p, err := e.roster.Get(idx)
	if err != nil {
		// A policy bug produced an out-of-range index; rotate and continue.
		e.log.Error("invalid speaker index", "index", idx, "err", err)
		return e.resolve(ctx, Step{Phase: e.CurrentPhase(), Speaker: idx}, e.selector.Fallback(0))
	}

	turn := e.nextTurn()
	phase := e.CurrentPhase()
	e.log.Info("persona turn", "turn", turn, "persona", p.Name, "phase", phase)

	directive := persona.TurnInstructions(p, e.takeOverride())
	window := persona.ContextWindow(e.roster, e.History(), e.contextWindow)
	last, haveLast := conversation.Last(e.History())
	prompt := persona.TurnPrompt(p, directive, window, last, haveLast)

	e.tracker.Reset(p.Name)
	e.events.personaStarted(p.Name)
	started := time.Now()

	result, chanErr := e.runExchange(ctx, p, directive, prompt)
	if chanErr != nil {
		return e.failTurn(ctx, p, idx, phase, chanErr)
	}

	text := strings.TrimSpace(result.text)
	if text == "" && result.audioBytes == 0 {
		text = persona.FallbackUtterance
	}
	if text == "" {
		// Audio arrived but no transcript; keep the entry non-empty for
		// downstream consumers.
		text = "(spoken response)"
	}

	e.append(conversation.Entry{
		Speaker:    p.Name,
		Text:       text,
		Timestamp:  time.Now(),
		AudioBytes: result.audioBytes,
	})
	e.events.personaFinished(p.Name, text, result.audioBytes)
	e.reportTurn(ctx, p.Name, time.Since(started))

	e.tracker.Wait(ctx, p.Name)

	sel := e.selector.Decode(idx, result.selectionArgs, result.selectionBuffered)
	if !sel.Explicit {
		e.reportFallback(ctx)
	}
	e.log.Info("next speaker resolved",
		"turn", turn, "speaker", e.speakerName(sel.Speaker), "reason", sel.Reason)
	return e.resolve(ctx, Step{Phase: phase, Speaker: idx, Text: text}, sel)
}

// exchangeResult aggregates one turn's streamed events.
type exchangeResult struct {
	text              string
	audioBytes        int
	selectionArgs     string
	selectionBuffered string
}

// runExchange opens the realtime exchange, retrying with a reinforced prompt
// while the persona produces neither text nor audio.
func (e *Engine) runExchange(ctx context.Context, p persona.Persona, directive, prompt string) (exchangeResult, error) {
	audio := e.takePendingAudio()

	var result exchangeResult
	for attempt := 0; attempt <= emptyRetryBudget; attempt++ {
		if attempt > 0 {
			e.log.Warn("empty response, retrying with reinforced prompt",
				"persona", p.Name, "attempt", attempt)
			prompt = persona.ReinforcePrompt(prompt)
		}

		cfg := realtime.TurnConfig{
			Voice:             p.Voice,
			Instructions:      directive,
			Temperature:       p.Temperature,
			MaxResponseTokens: p.MaxResponseTokens,
			Tools:             persona.Tools(e.roster, p),
			Prompt:            prompt,
			HumanAudio:        audio,
		}
		r, err := e.drainTurn(ctx, cfg, p.Name)
		if err != nil {
			return exchangeResult{}, err
		}
		result = r
		if strings.TrimSpace(result.text) != "" || result.audioBytes > 0 {
			return result, nil
		}
	}
	return result, nil
}

// drainTurn opens one exchange and consumes its whole event stream.
func (e *Engine) drainTurn(ctx context.Context, cfg realtime.TurnConfig, name string) (exchangeResult, error) {
	handle, err := e.provider.Open(ctx, cfg)
	if err != nil {
		return exchangeResult{}, err
	}
	defer handle.Close()

	var (
		result exchangeResult
		text   strings.Builder
	)
	for evt := range handle.Events() {
		switch evt.Type {
		case realtime.EventTextDelta:
			text.WriteString(evt.Text)

		case realtime.EventAudioDelta:
			result.audioBytes += len(evt.Audio)
			e.tracker.Track(name)
			e.events.audioChunk(name, evt.Audio)
			e.reportChunk(ctx, name)

		case realtime.EventToolCallDelta:
			if evt.ToolName == persona.SelectionToolName || evt.ToolName == "" {
				result.selectionBuffered += evt.ToolArgs
			}

		case realtime.EventToolCallDone:
			if evt.ToolName == persona.SelectionToolName {
				result.selectionArgs = evt.ToolArgs
				continue
			}
			e.triggerWorkflow(ctx, evt.ToolName, evt.ToolArgs)

		case realtime.EventError:
			return exchangeResult{}, evt.Err

		case realtime.EventDone:
			// Channel closes after this; the loop drains naturally.
		}
	}
	result.text = text.String()
	return result, nil
}

// failTurn records the error sentinel and resolves through the sequential
// fallback. Errors never escape the turn loop.
func (e *Engine) failTurn(ctx context.Context, p persona.Persona, idx int, phase Phase, err error) Resolution {
	e.log.Error("persona turn failed", "persona", p.Name, "err", err)
	e.reportChannelError(ctx)

	sentinel := persona.ErrorSentinel(p.Name)
	e.append(conversation.Entry{Speaker: p.Name, Text: sentinel, Timestamp: time.Now()})
	e.events.personaFinished(p.Name, sentinel, 0)

	select {
	case <-time.After(errorPause):
	case <-ctx.Done():
	}
	return e.resolve(ctx, Step{Phase: phase, Speaker: idx, Text: sentinel}, e.selector.Fallback(idx))
}

// humanTurn hands the floor to the human and resolves the next step. The
// human's last-persona successor stands in for the selection free choice,
// since humans never call the selection tool.
func (e *Engine) humanTurn(ctx context.Context, lastPersona int) Resolution {
	turn := e.nextTurn()
	phase := e.CurrentPhase()
	e.log.Info("human turn", "turn", turn, "phase", phase)
	e.events.humanTurnStarted()

	in, ok := e.gate.Await(ctx)
	e.events.humanTurnEnded()
	if !ok {
		e.reportHumanTimeout(ctx)
		in = HumanInput{Text: persona.FallbackUtterance}
	}

	e.append(conversation.Entry{Speaker: persona.Human, Text: in.Text, Timestamp: time.Now()})
	e.setPendingAudio(in.Audio)

	return e.resolve(ctx, Step{Phase: phase, Speaker: e.roster.HumanIndex(), Text: in.Text}, e.selector.Fallback(lastPersona))
}

// triggerWorkflow forwards a non-selection tool call to the launcher.
func (e *Engine) triggerWorkflow(ctx context.Context, name, args string) {
	if name == "" {
		return
	}
	if e.workflows == nil {
		e.log.Warn("workflow tool called but no launcher wired", "tool", name)
		return
	}
	e.log.Info("workflow triggered", "tool", name)
	e.workflows.Trigger(ctx, name, args)
}

func (e *Engine) resolve(ctx context.Context, step Step, free Selection) Resolution {
	return e.policy.Resolve(ctx, step, free)
}

// speakerName renders a roster index for logging; the human slot has no
// persona entry.
func (e *Engine) speakerName(i int) string {
	if p, err := e.roster.Get(i); err == nil {
		return p.Name
	}
	return persona.Human
}

// ── Internal state accessors ─────────────────────────────────────────────────

// Turn returns the number of turns — persona and human — completed or in
// progress.
func (e *Engine) Turn() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turn
}

// CurrentPhase returns the phase the conversation is in.
func (e *Engine) CurrentPhase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) nextTurn() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turn++
	return e.turn
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = p
}

func (e *Engine) append(entry conversation.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, entry)
}

func (e *Engine) setOverride(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingOverride = s
}

func (e *Engine) takeOverride() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.pendingOverride
	e.pendingOverride = ""
	return s
}

func (e *Engine) setPendingAudio(b []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingAudio = b
}

func (e *Engine) takePendingAudio() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.pendingAudio
	e.pendingAudio = nil
	return b
}

// ── Nil-safe metrics forwarding ──────────────────────────────────────────────

func (e *Engine) reportTurn(ctx context.Context, name string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.TurnCompleted(ctx, name, d)
	}
}

func (e *Engine) reportChunk(ctx context.Context, name string) {
	if e.metrics != nil {
		e.metrics.AudioChunk(ctx, name)
	}
}

func (e *Engine) reportFallback(ctx context.Context) {
	if e.metrics != nil {
		e.metrics.SelectionFallback(ctx)
	}
}

func (e *Engine) reportChannelError(ctx context.Context) {
	if e.metrics != nil {
		e.metrics.ChannelError(ctx)
	}
}

func (e *Engine) reportHumanTimeout(ctx context.Context) {
	if e.metrics != nil {
		e.metrics.HumanTimeout(ctx)
	}
}

func (e *Engine) reportActive(ctx context.Context, delta int) {
	if e.metrics != nil {
		e.metrics.ConversationActive(ctx, delta)
	}
}
