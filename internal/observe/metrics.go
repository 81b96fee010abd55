// Package observe provides application-wide observability primitives for
// Moentreprise: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/malhajar17/moentreprise/internal/orchestrator"
	"github.com/malhajar17/moentreprise/internal/workflow"
)

// meterName is the instrumentation scope name used for all Moentreprise
// metrics.
const meterName = "github.com/malhajar17/moentreprise"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
//
// Metrics satisfies both [orchestrator.Metrics] and [workflow.Metrics], so a
// single instance instruments the whole conversation pipeline.
type Metrics struct {
	// TurnDuration tracks how long one persona turn takes, from channel open
	// to estimated playback completion. Attribute: persona.
	TurnDuration metric.Float64Histogram

	// AudioChunks counts streamed audio chunks. Attribute: persona.
	AudioChunks metric.Int64Counter

	// SelectionFallbacks counts turns where no usable select_next_speaker
	// call arrived and the sequential fallback decided the next speaker.
	SelectionFallbacks metric.Int64Counter

	// ChannelErrors counts realtime channel failures surfaced mid-turn.
	ChannelErrors metric.Int64Counter

	// HumanTimeouts counts human turns that expired without input.
	HumanTimeouts metric.Int64Counter

	// WorkflowTriggers counts workflow trigger outcomes. Attributes:
	// workflow, status (accepted, duplicate, unknown, failed).
	WorkflowTriggers metric.Int64Counter

	// ActiveConversations tracks the number of running conversations.
	ActiveConversations metric.Int64UpDownCounter

	// HTTPRequestDuration tracks control-plane request latency. Attributes:
	// method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// turnBuckets defines histogram bucket boundaries (in seconds) sized for
// spoken persona turns, which run from sub-second failures up to long
// monologues with playback wait.
var turnBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TurnDuration, err = m.Float64Histogram("moentreprise.turn.duration",
		metric.WithDescription("Duration of one persona turn including playback wait."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(turnBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AudioChunks, err = m.Int64Counter("moentreprise.audio.chunks",
		metric.WithDescription("Total streamed audio chunks by persona."),
	); err != nil {
		return nil, err
	}
	if met.SelectionFallbacks, err = m.Int64Counter("moentreprise.selection.fallbacks",
		metric.WithDescription("Turns resolved by the sequential speaker fallback."),
	); err != nil {
		return nil, err
	}
	if met.ChannelErrors, err = m.Int64Counter("moentreprise.channel.errors",
		metric.WithDescription("Realtime channel failures during persona turns."),
	); err != nil {
		return nil, err
	}
	if met.HumanTimeouts, err = m.Int64Counter("moentreprise.human.timeouts",
		metric.WithDescription("Human turns that expired without input."),
	); err != nil {
		return nil, err
	}
	if met.WorkflowTriggers, err = m.Int64Counter("moentreprise.workflow.triggers",
		metric.WithDescription("Workflow trigger outcomes by workflow and status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveConversations, err = m.Int64UpDownCounter("moentreprise.active_conversations",
		metric.WithDescription("Number of running conversations."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("moentreprise.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// ── orchestrator.Metrics ──────────────────────────────────────────────────────

// TurnCompleted records the duration of one finished persona turn.
func (m *Metrics) TurnCompleted(ctx context.Context, persona string, d time.Duration) {
	m.TurnDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("persona", persona)),
	)
}

// AudioChunk counts one streamed audio chunk for the given persona.
func (m *Metrics) AudioChunk(ctx context.Context, persona string) {
	m.AudioChunks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("persona", persona)),
	)
}

// SelectionFallback counts one sequential-fallback speaker selection.
func (m *Metrics) SelectionFallback(ctx context.Context) {
	m.SelectionFallbacks.Add(ctx, 1)
}

// ChannelError counts one realtime channel failure.
func (m *Metrics) ChannelError(ctx context.Context) {
	m.ChannelErrors.Add(ctx, 1)
}

// HumanTimeout counts one expired human turn.
func (m *Metrics) HumanTimeout(ctx context.Context) {
	m.HumanTimeouts.Add(ctx, 1)
}

// ConversationActive moves the running-conversation gauge by delta.
func (m *Metrics) ConversationActive(ctx context.Context, delta int) {
	m.ActiveConversations.Add(ctx, int64(delta))
}

// ── workflow.Metrics ──────────────────────────────────────────────────────────

// WorkflowTriggered records one workflow trigger outcome.
func (m *Metrics) WorkflowTriggered(ctx context.Context, name, status string) {
	m.WorkflowTriggers.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("workflow", name),
			attribute.String("status", status),
		),
	)
}

var (
	_ orchestrator.Metrics = (*Metrics)(nil)
	_ workflow.Metrics     = (*Metrics)(nil)
)
