// internal/common/observability/metrics.go
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter for pipeline runs. The exporter
// registers with the default Prometheus registry served on /metrics.
type Observability struct {
	meterProvider    *metric.MeterProvider
	pipelineRuns     otelmetric.Int64Counter
	pipelineDuration otelmetric.Float64Histogram
	reorders         otelmetric.Int64Counter
}

func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o, err := newWithProvider(provider, serviceName)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return o, nil
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) (*Observability, error) {
	meter := provider.Meter(serviceName)

	runs, err := meter.Int64Counter(
		"match.pipeline.runs",
		otelmetric.WithDescription("Number of matching pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"match.pipeline.duration",
		otelmetric.WithDescription("Matching pipeline run duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	reorders, err := meter.Int64Counter(
		"match.reorders",
		otelmetric.WithDescription("Number of recommendation reorders"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider:    provider,
		pipelineRuns:     runs,
		pipelineDuration: duration,
		reorders:         reorders,
	}, nil
}

// RecordPipelineRun counts one run and its duration. status is "success" or an error code.
func (o *Observability) RecordPipelineRun(ctx context.Context, status, requestType string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("status", status),
		attribute.String("request_type", requestType),
	)
	o.pipelineRuns.Add(ctx, 1, attrs)
	o.pipelineDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (o *Observability) RecordReorder(ctx context.Context, status string) {
	if o == nil {
		return
	}
	o.reorders.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
