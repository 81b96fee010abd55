// Package workflow runs the side effects personas trigger through their
// function tools: the site build pipeline, the launch social post, and the
// promotional video. Workflows are fire-and-forget; the conversation never
// waits on one, and a workflow failure only ever surfaces as a log line and
// a status notification.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Workflow is one runnable side effect. args is the raw JSON argument
// payload from the persona's tool call; implementations parse what they need
// and tolerate garbage.
type Workflow interface {
	Run(ctx context.Context, args string) error
}

// WorkflowFunc adapts a function to the Workflow interface.
type WorkflowFunc func(ctx context.Context, args string) error

// Run implements Workflow.
func (f WorkflowFunc) Run(ctx context.Context, args string) error { return f(ctx, args) }

// Notifier receives workflow progress for the presentation layer. May be nil.
type Notifier func(kind, detail string)

// Metrics is the instrumentation surface for workflow triggers. May be nil.
type Metrics interface {
	WorkflowTriggered(ctx context.Context, name, status string)
}

// Launcher is the workflow registry and trigger point. Each workflow runs at
// most once concurrently: a trigger arriving while the same workflow is in
// flight is rejected as a logged no-op, which absorbs the duplicate tool
// calls streaming models like to emit.
type Launcher struct {
	mu      sync.Mutex
	entries map[string]*entry

	// root is the lifecycle context for all runs; CancelAll cancels it.
	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	notify  Notifier
	metrics Metrics
	log     *slog.Logger
}

type entry struct {
	wf       Workflow
	inFlight atomic.Bool
}

// LauncherOption configures a [Launcher] during construction.
type LauncherOption func(*Launcher)

// WithNotifier sets the progress notifier.
func WithNotifier(n Notifier) LauncherOption {
	return func(l *Launcher) { l.notify = n }
}

// WithMetrics sets the trigger instrumentation.
func WithMetrics(m Metrics) LauncherOption {
	return func(l *Launcher) { l.metrics = m }
}

// NewLauncher creates an empty launcher. A nil logger uses the default.
func NewLauncher(log *slog.Logger, opts ...LauncherOption) *Launcher {
	if log == nil {
		log = slog.Default()
	}
	root, cancel := context.WithCancel(context.Background())
	l := &Launcher{
		entries: make(map[string]*entry),
		root:    root,
		cancel:  cancel,
		log:     log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register adds a workflow under the given tool name. Registering the same
// name twice is an error.
func (l *Launcher) Register(name string, wf Workflow) error {
	if name == "" {
		return errors.New("workflow: name must not be empty")
	}
	if wf == nil {
		return errors.New("workflow: workflow must not be nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[name]; ok {
		return fmt.Errorf("workflow: %q already registered", name)
	}
	l.entries[name] = &entry{wf: wf}
	return nil
}

// Trigger starts the named workflow in the background. An unknown name or an
// in-flight duplicate is logged and dropped; the caller never blocks and
// never sees an error.
func (l *Launcher) Trigger(ctx context.Context, name, args string) {
	l.mu.Lock()
	ent, ok := l.entries[name]
	l.mu.Unlock()
	if !ok {
		l.log.Warn("unknown workflow triggered", "workflow", name)
		l.report(ctx, name, "unknown")
		return
	}

	if !ent.inFlight.CompareAndSwap(false, true) {
		l.log.Info("workflow already in progress, ignoring duplicate trigger", "workflow", name)
		l.report(ctx, name, "duplicate")
		return
	}

	l.log.Info("workflow started", "workflow", name)
	l.report(ctx, name, "accepted")
	l.notifyStatus(name, "started")

	// Each run gets its own cancellable context off the launcher root, so
	// the triggering turn's context cannot cut the workflow short.
	runCtx, runCancel := context.WithCancel(l.root)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer runCancel()
		defer ent.inFlight.Store(false)

		if err := ent.wf.Run(runCtx, args); err != nil {
			l.log.Error("workflow failed", "workflow", name, "err", err)
			l.report(runCtx, name, "failed")
			l.notifyStatus(name, "failed")
			return
		}
		l.log.Info("workflow completed", "workflow", name)
		l.notifyStatus(name, "completed")
	}()
}

// CancelAll signals cooperative cancellation to every in-flight run and
// waits for them to return.
func (l *Launcher) CancelAll() {
	l.cancel()
	l.wg.Wait()
}

func (l *Launcher) notifyStatus(name, state string) {
	if l.notify != nil {
		l.notify("workflow", name+" "+state)
	}
}

func (l *Launcher) report(ctx context.Context, name, status string) {
	if l.metrics != nil {
		l.metrics.WorkflowTriggered(ctx, name, status)
	}
}
