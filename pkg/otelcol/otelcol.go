package otelcol

import (
	"context"
	"os"

	"appforge-controlplane/pkg/config"
	"appforge-controlplane/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module exports spans to an OTLP collector. Endpoint and credentials come
// from the standard OTEL_EXPORTER_OTLP_* environment variables.
var Module = fx.Module("otelcol",
	fx.Provide(
		ProvideExporter,
		ProvideTrace,
	),
	fx.Invoke(registerGlobal),
)

// ProvideExporter picks the wire protocol from
// OTEL_EXPORTER_OTLP_PROTOCOL, defaulting to gRPC.
func ProvideExporter(cfg *config.Config) (*otlptrace.Exporter, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "http/protobuf" {
		return exporters.ProvideHttp(cfg)
	}
	return exporters.ProvideGrpc(cfg)
}

func ProvideTrace(lc fx.Lifecycle, cfg *config.Config, exporter *otlptrace.Exporter) *trace.TracerProvider {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.AppName),
		attribute.String("deployment.environment", cfg.AppEnv),
	))
	if err != nil {
		res = resource.Default()
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
	)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("flushing trace exporter")
			return tp.Shutdown(ctx)
		},
	})

	return tp
}

func registerGlobal(tp *trace.TracerProvider) {
	otel.SetTracerProvider(tp)
}
