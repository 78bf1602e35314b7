package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "pathref"

// Tracer is the package-wide tracer. It follows the global provider, so it
// is a no-op until InitTracing installs an exporter.
var Tracer trace.Tracer = otel.Tracer(tracerName)

// Common span attribute keys.
var (
	AttrModule     = attribute.Key("pathref.module")
	AttrFile       = attribute.Key("pathref.file")
	AttrLibraries  = attribute.Key("pathref.include_libraries")
	AttrRootCount  = attribute.Key("pathref.root_count")
	AttrStructural = attribute.Key("pathref.structural_change")
)

// InitTracing installs an OTLP/gRPC tracer provider when endpoint is set.
// The returned shutdown func is always non-nil.
func InitTracing(ctx context.Context, serviceName, version, endpoint string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	))
	if err != nil {
		return noop, fmt.Errorf("create trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
