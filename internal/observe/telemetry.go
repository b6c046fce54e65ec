package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TelemetryOptions selects where a player process reports to.
type TelemetryOptions struct {
	// Service names the process in every exported series and span.
	// Default: "casescript".
	Service string
	Version string

	// Registerer receives the Prometheus collectors served on /metrics.
	// Nil means [prometheus.DefaultRegisterer].
	Registerer prometheus.Registerer

	// Spans exports conversation run spans. Nil keeps spans in process.
	Spans sdktrace.SpanExporter
}

// Telemetry is the OpenTelemetry wiring of one player process. Metrics
// recorded through it are scraped from the Prometheus registerer.
type Telemetry struct {
	// Metrics is the interpreter instrument set bound to this process.
	Metrics *Metrics

	meters *sdkmetric.MeterProvider
	spans  *sdktrace.TracerProvider
}

// StartTelemetry builds the meter and tracer providers and installs them as
// the OpenTelemetry globals, so [Tracer] and [DefaultMetrics] report through
// them as well.
func StartTelemetry(opts TelemetryOptions) (*Telemetry, error) {
	if opts.Service == "" {
		opts.Service = "casescript"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	exp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(opts.Service),
		semconv.ServiceVersion(opts.Version),
	)

	tel := &Telemetry{
		meters: sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(exp)),
	}
	spanOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if opts.Spans != nil {
		spanOpts = append(spanOpts, sdktrace.WithBatcher(opts.Spans))
	}
	tel.spans = sdktrace.NewTracerProvider(spanOpts...)

	if tel.Metrics, err = NewMetrics(tel.meters); err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("observe: metrics: %w", err)
	}
	otel.SetMeterProvider(tel.meters)
	otel.SetTracerProvider(tel.spans)
	return tel, nil
}

// Shutdown flushes pending spans, then stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.spans.Shutdown(ctx), t.meters.Shutdown(ctx))
}
