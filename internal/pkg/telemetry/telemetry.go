// Package telemetry wires OpenTelemetry metrics and tracing for the bot. When
// enabled, it exports over OTLP/gRPC and registers the global providers used
// by otel.Meter and otel.Tracer; when disabled, the globals stay no-op.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// ShutdownFunc flushes and stops every provider created by Init.
type ShutdownFunc func(ctx context.Context) error

// config holds the collector settings.
type config struct {
	endpoint string // host:port of the OTLP gRPC collector; empty uses the exporter default
	insecure bool   // disable TLS towards the collector
}

// Option customizes Init.
type Option func(*config)

// WithEndpoint sets the OTLP collector address (host:port).
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// WithInsecure disables TLS for the collector connection.
func WithInsecure() Option {
	return func(c *config) {
		c.insecure = true
	}
}

func newResource(serviceName string) (*sdkresource.Resource, error) {
	return sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func initMeterProvider(ctx context.Context, res *sdkresource.Resource, cfg config) (*sdkmetric.MeterProvider, error) {
	var opts []otlpmetricgrpc.Option
	if cfg.endpoint != "" {
		opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.endpoint))
	}
	if cfg.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)
	return mp, nil
}

func initTracerProvider(ctx context.Context, res *sdkresource.Resource, cfg config) (*sdktrace.TracerProvider, error) {
	var opts []otlptracegrpc.Option
	if cfg.endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(cfg.endpoint))
	}
	if cfg.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// Init creates the meter and tracer providers for serviceName and registers
// them globally. The returned ShutdownFunc must be called on exit so pending
// metrics and spans are exported.
func Init(ctx context.Context, serviceName string, opts ...Option) (ShutdownFunc, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	res, err := newResource(serviceName)
	if err != nil {
		return nil, err
	}

	mp, err := initMeterProvider(ctx, res, cfg)
	if err != nil {
		return nil, err
	}

	tp, err := initTracerProvider(ctx, res, cfg)
	if err != nil {
		return nil, errors.Join(err, mp.Shutdown(ctx))
	}

	return func(ctx context.Context) error {
		return errors.Join(
			mp.Shutdown(ctx),
			tp.Shutdown(ctx),
		)
	}, nil
}

// Noop is the ShutdownFunc used when telemetry is disabled.
func Noop(context.Context) error {
	return nil
}
