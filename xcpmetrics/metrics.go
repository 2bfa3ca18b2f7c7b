package xcpmetrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for every instrument this
// package creates.
const meterName = "github.com/rob-gra/xcp-lite"

// durationBuckets are histogram bucket boundaries in seconds, sized for
// sub-millisecond measurement triggers up to multi-second A2L emission.
var durationBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
}

// Metrics holds every OpenTelemetry instrument this runtime records to.
// All fields are safe for concurrent use - the underlying OTel instruments
// handle their own synchronization.
type Metrics struct {
	// EventTriggers counts DaqEvent.Trigger/TriggerExt calls, by event name.
	EventTriggers metric.Int64Counter

	// EventTriggerDuration tracks how long a trigger's Sampler.Sample call
	// took, by event name - the capture-to-enqueue latency on the hot path.
	EventTriggerDuration metric.Float64Histogram

	// QueueDepth tracks each session's current DTO queue occupancy, by
	// peer address.
	QueueDepth metric.Int64UpDownCounter

	// QueueDrops counts DTO frames dropped because a session's queue was
	// full, by peer address.
	QueueDrops metric.Int64Counter

	// BytesSent counts bytes written to the transport, by peer address
	// and frame kind ("cto" or "dto").
	BytesSent metric.Int64Counter

	// CalRead and CalWrite count calibration segment read/write protocol
	// glue calls, by segment name.
	CalRead  metric.Int64Counter
	CalWrite metric.Int64Counter

	// A2LWriteDuration tracks how long WriteA2L's file emission took.
	A2LWriteDuration metric.Float64Histogram
}

// NewMetrics creates a fully initialized Metrics using mp. Returns an error
// if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.EventTriggers, err = m.Int64Counter("xcp.event.triggers",
		metric.WithDescription("Total DaqEvent trigger calls, by event name."),
	); err != nil {
		return nil, err
	}
	if met.EventTriggerDuration, err = m.Float64Histogram("xcp.event.trigger.duration",
		metric.WithDescription("Duration of a single event trigger's sample capture."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("xcp.dto_queue.depth",
		metric.WithDescription("Current DTO queue occupancy, by peer address."),
	); err != nil {
		return nil, err
	}
	if met.QueueDrops, err = m.Int64Counter("xcp.dto_queue.drops",
		metric.WithDescription("Total DTO frames dropped due to a full queue, by peer address."),
	); err != nil {
		return nil, err
	}
	if met.BytesSent, err = m.Int64Counter("xcp.transport.bytes_sent",
		metric.WithDescription("Total bytes written to the transport, by peer address and frame kind."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.CalRead, err = m.Int64Counter("xcp.cal.reads",
		metric.WithDescription("Total calibration segment reads, by segment name."),
	); err != nil {
		return nil, err
	}
	if met.CalWrite, err = m.Int64Counter("xcp.cal.writes",
		metric.WithDescription("Total calibration segment writes, by segment name."),
	); err != nil {
		return nil, err
	}
	if met.A2LWriteDuration, err = m.Float64Histogram("xcp.a2l.write.duration",
		metric.WithDescription("Duration of A2L file emission."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordTrigger records one DaqEvent trigger and its sampling duration.
func (m *Metrics) RecordTrigger(ctx context.Context, eventName string, d float64) {
	attrs := metric.WithAttributes(attribute.String("event", eventName))
	m.EventTriggers.Add(ctx, 1, attrs)
	m.EventTriggerDuration.Record(ctx, d, attrs)
}

// RecordQueueSample records one Sample call on a session's DTO queue:
// depth is the queue's occupancy after the call, dropped reports whether
// the frame was dropped rather than enqueued.
func (m *Metrics) RecordQueueSample(ctx context.Context, peer string, depth int64, dropped bool) {
	attrs := metric.WithAttributes(attribute.String("peer", peer))
	if dropped {
		m.QueueDrops.Add(ctx, 1, attrs)
		return
	}
	m.QueueDepth.Add(ctx, depth, attrs)
}

// RecordBytesSent records bytes written to the transport for peer, tagged
// by frame kind ("cto" or "dto").
func (m *Metrics) RecordBytesSent(ctx context.Context, peer, kind string, n int64) {
	m.BytesSent.Add(ctx, n, metric.WithAttributes(
		attribute.String("peer", peer),
		attribute.String("kind", kind),
	))
}

// RecordCalRead records one calibration segment read.
func (m *Metrics) RecordCalRead(ctx context.Context, segment string) {
	m.CalRead.Add(ctx, 1, metric.WithAttributes(attribute.String("segment", segment)))
}

// RecordCalWrite records one calibration segment write.
func (m *Metrics) RecordCalWrite(ctx context.Context, segment string) {
	m.CalWrite.Add(ctx, 1, metric.WithAttributes(attribute.String("segment", segment)))
}

// RecordA2LWrite records how long an A2L emission took.
func (m *Metrics) RecordA2LWrite(ctx context.Context, d float64) {
	m.A2LWriteDuration.Record(ctx, d)
}
