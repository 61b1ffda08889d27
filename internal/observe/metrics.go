// Package observe provides application-wide observability primitives for
// AiVoice: OpenTelemetry metrics, tracing helpers, and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all AiVoice metrics.
const meterName = "github.com/uday-incquet/AiVoice"

// Metrics holds all OpenTelemetry metric instruments for the relay. All
// fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// CallDuration tracks the wall-clock lifetime of a relay session from
	// acceptance to Closed.
	CallDuration metric.Float64Histogram

	// BackendConnectDuration tracks backend session establishment latency.
	BackendConnectDuration metric.Float64Histogram

	// FramesForwarded counts audio frames forwarded across the relay. Use
	// with attribute.String("direction", "inbound"|"outbound").
	FramesForwarded metric.Int64Counter

	// FramesBuffered counts frames held in the session buffer while the
	// backend session was still setting up.
	FramesBuffered metric.Int64Counter

	// FramesDropped counts frames discarded (malformed payloads, audio
	// arriving before the stream identifier is known). Use with
	// attribute.String("reason", ...).
	FramesDropped metric.Int64Counter

	// SessionErrors counts session-fatal failures. Use with
	// attribute.String("side", "telephony"|"backend").
	SessionErrors metric.Int64Counter

	// ActiveCalls tracks the number of live relay sessions.
	ActiveCalls metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// connection setup latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// callDurationBuckets covers typical phone-call lifetimes.
var callDurationBuckets = []float64{
	1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CallDuration, err = m.Float64Histogram("aivoice.call.duration",
		metric.WithDescription("Lifetime of a relay session from acceptance to close."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BackendConnectDuration, err = m.Float64Histogram("aivoice.backend.connect.duration",
		metric.WithDescription("Latency of backend session establishment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesForwarded, err = m.Int64Counter("aivoice.frames.forwarded",
		metric.WithDescription("Audio frames forwarded across the relay by direction."),
	); err != nil {
		return nil, err
	}
	if met.FramesBuffered, err = m.Int64Counter("aivoice.frames.buffered",
		metric.WithDescription("Frames buffered while awaiting backend readiness."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("aivoice.frames.dropped",
		metric.WithDescription("Frames discarded by the relay by reason."),
	); err != nil {
		return nil, err
	}
	if met.SessionErrors, err = m.Int64Counter("aivoice.session.errors",
		metric.WithDescription("Session-fatal failures by side."),
	); err != nil {
		return nil, err
	}
	if met.ActiveCalls, err = m.Int64UpDownCounter("aivoice.active_calls",
		metric.WithDescription("Number of live relay sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("aivoice.http.request.duration",
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

// RecordFrame records one forwarded frame for the given direction.
func (m *Metrics) RecordFrame(ctx context.Context, direction string) {
	m.FramesForwarded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("direction", direction)),
	)
}

// RecordDrop records one discarded frame with the given reason.
func (m *Metrics) RecordDrop(ctx context.Context, reason string) {
	m.FramesDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
