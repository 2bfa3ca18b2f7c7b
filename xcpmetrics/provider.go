// Package xcpmetrics instruments the runtime with OpenTelemetry metrics
// exported via a Prometheus bridge: DTO queue depth and drops, event
// trigger counts and latencies per event, bytes transferred, calibration
// read/write counts per segment, and A2L emission duration.
//
// Grounded on MrWong99-glyphoxa's internal/observe package: a
// [sdkmetric.MeterProvider] backed by [promexporter], and a Metrics struct
// of named instruments created once and passed by pointer to call sites.
package xcpmetrics

import (
	"context"
	"errors"

	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig configures the OpenTelemetry meter provider.
type ProviderConfig struct {
	// ServiceName identifies this process in exported metric resource
	// attributes. Default: "xcp-lite".
	ServiceName string
}

// InitProvider builds a MeterProvider backed by a Prometheus exporter (for
// scraping via the /metrics endpoint Handler serves, as mounted by
// cmd/xcpdemo) and
// returns a shutdown func to defer from main.
func InitProvider(cfg ProviderConfig) (provider *sdkmetric.MeterProvider, shutdown func(context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "xcp-lite"
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(promExp))
	shutdown = func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx))
	}
	return mp, shutdown, nil
}
