package xcpmetrics

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsCreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordTriggerIncrementsCounterAndHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTrigger(ctx, "main_loop", 0.002)
	m.RecordTrigger(ctx, "main_loop", 0.004)

	rm := collect(t, reader)

	counter := findMetric(rm, "xcp.event.triggers")
	if counter == nil {
		t.Fatal("counter metric not found")
	}
	sum, ok := counter.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 2 {
		t.Fatalf("trigger count = %+v, want 2", sum)
	}

	hist := findMetric(rm, "xcp.event.trigger.duration")
	if hist == nil {
		t.Fatal("histogram metric not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) == 0 || h.DataPoints[0].Count != 2 {
		t.Fatalf("trigger duration histogram = %+v, want count 2", h)
	}
}

func TestRecordQueueSampleSeparatesDepthFromDrops(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordQueueSample(ctx, "127.0.0.1:5555", 3, false)
	m.RecordQueueSample(ctx, "127.0.0.1:5555", 0, true)

	rm := collect(t, reader)

	depth := findMetric(rm, "xcp.dto_queue.depth")
	if depth == nil {
		t.Fatal("depth metric not found")
	}
	depthSum, ok := depth.Data.(metricdata.Sum[int64])
	if !ok || len(depthSum.DataPoints) == 0 || depthSum.DataPoints[0].Value != 3 {
		t.Fatalf("depth = %+v, want 3", depthSum)
	}

	drops := findMetric(rm, "xcp.dto_queue.drops")
	if drops == nil {
		t.Fatal("drops metric not found")
	}
	dropsSum, ok := drops.Data.(metricdata.Sum[int64])
	if !ok || len(dropsSum.DataPoints) == 0 || dropsSum.DataPoints[0].Value != 1 {
		t.Fatalf("drops = %+v, want 1", dropsSum)
	}
}

func TestRecordCalReadWriteTagBySegment(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCalRead(ctx, "params")
	m.RecordCalWrite(ctx, "params")
	m.RecordCalWrite(ctx, "params")

	rm := collect(t, reader)

	reads := findMetric(rm, "xcp.cal.reads")
	writes := findMetric(rm, "xcp.cal.writes")
	if reads == nil || writes == nil {
		t.Fatal("cal read/write metrics not found")
	}
	readSum := reads.Data.(metricdata.Sum[int64])
	writeSum := writes.Data.(metricdata.Sum[int64])
	if readSum.DataPoints[0].Value != 1 {
		t.Fatalf("reads = %d, want 1", readSum.DataPoints[0].Value)
	}
	if writeSum.DataPoints[0].Value != 2 {
		t.Fatalf("writes = %d, want 2", writeSum.DataPoints[0].Value)
	}
}
