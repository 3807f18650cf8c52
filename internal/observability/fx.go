package observability

import (
	"github.com/smallbiznis/horecaalert/internal/observability/logger"
	"github.com/smallbiznis/horecaalert/internal/observability/metrics"
	"github.com/smallbiznis/horecaalert/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires the logger, the otel providers and the prometheus collectors
// used by the HTTP layer, the scheduler and the matching pipeline.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		componentConfigs,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.SchedulerWithConfig,
		metrics.PipelineWithConfig,
	),
	// The tracer provider has no consumer in the graph; requesting it
	// installs the global provider.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func componentConfigs(cfg Config) (logger.Config, tracing.Config, metrics.Config) {
	debug := cfg.Debug()
	logCfg := logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               debug,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
	traceCfg := tracing.Config{
		Enabled:          cfg.TracingEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OTLPEndpoint,
		ExporterProtocol: cfg.OTLPProtocol,
		SamplingRatio:    cfg.SamplingRatio,
	}
	metricCfg := metrics.Config{
		Enabled:          cfg.TracingEnabled,
		ExporterEndpoint: cfg.OTLPEndpoint,
		ExporterProtocol: cfg.OTLPProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
	return logCfg, traceCfg, metricCfg
}
