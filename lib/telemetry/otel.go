package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
}

// Telemetry holds the otel providers installed by Setup, either may be nil
// when its exporter was not configured.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// Shutdown flushes and stops whichever providers were installed.
func (t Telemetry) Shutdown(ctx context.Context) error {
	var traceErr, metricErr error
	if t.TracerProvider != nil {
		traceErr = t.TracerProvider.Shutdown(ctx)
	}
	if t.MeterProvider != nil {
		metricErr = t.MeterProvider.Shutdown(ctx)
	}
	return errors.Join(traceErr, metricErr)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}

// Setup installs the global otel providers. Exporters without an endpoint
// are skipped, so an empty Config leaves otel on its no-op defaults.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	var tel Telemetry
	if !config.Otlp.Traces.enabled() && !config.Otlp.Metrics.enabled() {
		return tel, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Telemetry{}, err
	}

	if config.Otlp.Traces.enabled() {
		exporter, err := spanExporter(ctx, config.Otlp.Traces)
		if err != nil {
			return Telemetry{}, fmt.Errorf("trace exporter: %w", err)
		}
		tel.TracerProvider = trace.NewTracerProvider(trace.WithBatcher(exporter), trace.WithResource(res))
		otel.SetTracerProvider(tel.TracerProvider)
	}
	if config.Otlp.Metrics.enabled() {
		exporter, err := metricExporter(ctx, config.Otlp.Metrics)
		if err != nil {
			return Telemetry{}, errors.Join(fmt.Errorf("metric exporter: %w", err), tel.Shutdown(ctx))
		}
		reader := metric.NewPeriodicReader(exporter, metric.WithInterval(time.Second*5))
		tel.MeterProvider = metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res))
		otel.SetMeterProvider(tel.MeterProvider)
	}

	return tel, nil
}

// grpc wins when both endpoints are set.
func spanExporter(ctx context.Context, c OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if c.GrpcEndpoint != "" {
		slog.Debug("exporting traces", "protocol", "grpc", "endpoint", c.GrpcEndpoint)
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(c.GrpcEndpoint), otlptracegrpc.WithHeaders(c.Headers))
	}
	slog.Debug("exporting traces", "protocol", "http", "endpoint", c.HttpEndpoint)
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(c.HttpEndpoint), otlptracehttp.WithHeaders(c.Headers))
}

func metricExporter(ctx context.Context, c OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if c.GrpcEndpoint != "" {
		slog.Debug("exporting metrics", "protocol", "grpc", "endpoint", c.GrpcEndpoint)
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint), otlpmetricgrpc.WithHeaders(c.Headers))
	}
	slog.Debug("exporting metrics", "protocol", "http", "endpoint", c.HttpEndpoint)
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(c.HttpEndpoint), otlpmetrichttp.WithHeaders(c.Headers))
}
