package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// defaultHumanTimeout bounds how long a human turn can hold the floor.
	defaultHumanTimeout = 30 * time.Second

	// defaultPollInterval is how often Await checks the pending slot.
	defaultPollInterval = 500 * time.Millisecond
)

// HumanInput is one contribution from the human participant. Text always
// carries the display transcript; Audio optionally carries the raw pcm16
// payload to forward to the next persona turn.
type HumanInput struct {
	Text  string
	Audio []byte
}

// HumanGate is the single hand-off point between the presentation layer and
// the turn loop during a human turn. Submissions fill one pending slot
// (latest wins); Await consumes it exactly once. Safe for concurrent use.
type HumanGate struct {
	mu      sync.Mutex
	pending *HumanInput

	timeout time.Duration
	poll    time.Duration
	log     *slog.Logger
}

// GateOption configures a [HumanGate] during construction.
type GateOption func(*HumanGate)

// WithHumanTimeout overrides how long Await blocks before giving up.
func WithHumanTimeout(d time.Duration) GateOption {
	return func(g *HumanGate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithPollInterval overrides how often Await checks for a submission.
func WithPollInterval(d time.Duration) GateOption {
	return func(g *HumanGate) {
		if d > 0 {
			g.poll = d
		}
	}
}

// NewHumanGate creates a gate with the default timing. A nil logger uses the
// default.
func NewHumanGate(log *slog.Logger, opts ...GateOption) *HumanGate {
	if log == nil {
		log = slog.Default()
	}
	g := &HumanGate{
		timeout: defaultHumanTimeout,
		poll:    defaultPollInterval,
		log:     log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SubmitText offers a text-only human contribution. A submission arriving
// while one is already pending replaces it.
func (g *HumanGate) SubmitText(text string) {
	g.submit(&HumanInput{Text: text})
}

// SubmitAudio offers a spoken human contribution: the raw audio payload plus
// the display transcript shown in the conversation history.
func (g *HumanGate) SubmitAudio(text string, audio []byte) {
	cp := make([]byte, len(audio))
	copy(cp, audio)
	g.submit(&HumanInput{Text: text, Audio: cp})
}

func (g *HumanGate) submit(in *HumanInput) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		g.log.Debug("replacing pending human input")
	}
	g.pending = in
}

// Await blocks until a submission arrives, the timeout elapses, or ctx is
// cancelled. It returns the consumed input and true, or a zero input and
// false when the human never answered. The gate never stalls the
// conversation past its timeout.
func (g *HumanGate) Await(ctx context.Context) (HumanInput, bool) {
	deadline := time.Now().Add(g.timeout)
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	for {
		if in, ok := g.take(); ok {
			return in, true
		}
		if time.Now().After(deadline) {
			g.log.Warn("human turn timed out", "timeout", g.timeout)
			return HumanInput{}, false
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return HumanInput{}, false
		}
	}
}

// take consumes the pending slot if it is filled.
func (g *HumanGate) take() (HumanInput, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return HumanInput{}, false
	}
	in := *g.pending
	g.pending = nil
	return in, true
}

// Clear drops any pending submission, used when a conversation ends while
// input is still queued.
func (g *HumanGate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
}
