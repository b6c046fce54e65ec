// Package observe provides application-wide observability primitives for
// casescript: OpenTelemetry metrics, tracing, structured logging and the HTTP
// middleware for the metrics listener.
//
// Metrics are recorded through the OpenTelemetry Metrics API.
// [StartTelemetry] bridges them to Prometheus so they can be scraped from
// the /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all casescript metrics.
const meterName = "github.com/MrWong99/casescript"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Counters ---

	// ActionsExecuted counts actions run by the interpreter. Use with attribute:
	//   attribute.String("tag", ...)
	ActionsExecuted metric.Int64Counter

	// ActionsSkipped counts continuous actions skipped by fast-forward.
	ActionsSkipped metric.Int64Counter

	// RunsFinished counts finished conversation runs. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("completed", ...)
	RunsFinished metric.Int64Counter

	// Interjections counts interjections played. Use with attribute:
	//   attribute.String("id", ...)
	Interjections metric.Int64Counter

	// Damage counts confrontation hits. Use with attribute:
	//   attribute.String("target", "player"|"opponent")
	Damage metric.Int64Counter

	// TopicSelections counts confrontation topics entered. Use with attribute:
	//   attribute.String("topic", ...)
	TopicSelections metric.Int64Counter

	// AuthoringFaults counts script errors. Use with attribute:
	//   attribute.String("stage", "load"|"run")
	AuthoringFaults metric.Int64Counter

	// StoreBreaker counts circuit breaker transitions of the annotation
	// backends. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("state", ...)
	StoreBreaker metric.Int64Counter

	// --- Histograms ---

	// RunFrames tracks how many frames a conversation run took.
	RunFrames metric.Int64Histogram

	// FrameDuration tracks wall-clock time spent in one Update call.
	FrameDuration metric.Float64Histogram

	// HTTPRequestDuration tracks metrics listener request time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveConversations tracks the number of conversations currently running.
	ActiveConversations metric.Int64UpDownCounter
}

// frameBuckets defines histogram bucket boundaries (in seconds) for the time
// spent inside a single frame update.
var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1,
}

// runFrameBuckets defines histogram bucket boundaries (in frames) for run
// lengths.
var runFrameBuckets = []float64{
	1, 10, 60, 300, 600, 1800, 3600, 7200, 18000,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.ActionsExecuted, err = m.Int64Counter("casescript.actions.executed",
		metric.WithDescription("Total script actions executed by tag."),
	); err != nil {
		return nil, err
	}
	if met.ActionsSkipped, err = m.Int64Counter("casescript.actions.skipped",
		metric.WithDescription("Total continuous actions skipped by fast-forward."),
	); err != nil {
		return nil, err
	}
	if met.RunsFinished, err = m.Int64Counter("casescript.runs.finished",
		metric.WithDescription("Total conversation runs finished by kind and completion."),
	); err != nil {
		return nil, err
	}
	if met.Interjections, err = m.Int64Counter("casescript.interjections",
		metric.WithDescription("Total interjections played by id."),
	); err != nil {
		return nil, err
	}
	if met.Damage, err = m.Int64Counter("casescript.confrontation.damage",
		metric.WithDescription("Total confrontation hits by target."),
	); err != nil {
		return nil, err
	}
	if met.TopicSelections, err = m.Int64Counter("casescript.confrontation.topics",
		metric.WithDescription("Total confrontation topics entered by topic id."),
	); err != nil {
		return nil, err
	}
	if met.AuthoringFaults, err = m.Int64Counter("casescript.authoring_faults",
		metric.WithDescription("Total script authoring faults by stage."),
	); err != nil {
		return nil, err
	}
	if met.StoreBreaker, err = m.Int64Counter("casescript.store.breaker_transitions",
		metric.WithDescription("Total annotation backend circuit breaker transitions by backend and new state."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.RunFrames, err = m.Int64Histogram("casescript.run.frames",
		metric.WithDescription("Number of frames a conversation run took."),
		metric.WithUnit("{frame}"),
		metric.WithExplicitBucketBoundaries(runFrameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("casescript.frame.duration",
		metric.WithDescription("Wall-clock time spent in one interpreter update."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("casescript.http.request.duration",
		metric.WithDescription("Metrics listener request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveConversations, err = m.Int64UpDownCounter("casescript.active_conversations",
		metric.WithDescription("Number of conversations currently running."),
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

// RecordAction records one executed action.
func (m *Metrics) RecordAction(ctx context.Context, tag string) {
	m.ActionsExecuted.Add(ctx, 1, metric.WithAttributes(attribute.String("tag", tag)))
}

// RecordRun records a finished conversation run and its length in frames.
func (m *Metrics) RecordRun(ctx context.Context, kind string, completed bool, frames int64) {
	m.RunsFinished.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("completed", strconv.FormatBool(completed)),
		),
	)
	m.RunFrames.Record(ctx, frames, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordDamage records one confrontation hit against target.
func (m *Metrics) RecordDamage(ctx context.Context, target string) {
	m.Damage.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

// RecordBreakerTransition records an annotation backend entering state.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, backend, state string) {
	m.StoreBreaker.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("state", state),
	))
}

// RecordAuthoringFault records one script authoring fault found at stage.
func (m *Metrics) RecordAuthoringFault(ctx context.Context, stage string) {
	m.AuthoringFaults.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
