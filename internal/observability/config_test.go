package observability

import (
	"testing"

	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigProjectsTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName:     "horecaalert",
		AppVersion:  "1.2.3",
		Environment: "production",
		Telemetry: config.TelemetryConfig{
			LogLevel:       "warn",
			LogFormat:      "json",
			TracingEnabled: true,
			OTLPEndpoint:   " collector:4317 ",
			OTLPProtocol:   "http",
			SamplingRatio:  0.25,
		},
	})

	assert.Equal(t, Config{
		ServiceName:    "horecaalert",
		Environment:    "production",
		Version:        "1.2.3",
		LogLevel:       "warn",
		LogFormat:      "json",
		TracingEnabled: true,
		OTLPEndpoint:   "collector:4317",
		OTLPProtocol:   "http",
		SamplingRatio:  0.25,
	}, cfg)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigNormalizesTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Telemetry: config.TelemetryConfig{
			TracingEnabled: true,
			OTLPProtocol:   "udp",
			SamplingRatio:  3,
		},
	})

	assert.Equal(t, "horecaalert", cfg.ServiceName)
	assert.False(t, cfg.TracingEnabled, "tracing needs an endpoint")
	assert.Equal(t, "grpc", cfg.OTLPProtocol)
	assert.Equal(t, 1.0, cfg.SamplingRatio)
}

func TestConfigDebug(t *testing.T) {
	assert.True(t, Config{LogLevel: "DEBUG", Environment: "production"}.Debug())
	assert.True(t, Config{Environment: "development"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}

func TestComponentConfigsShareServiceIdentity(t *testing.T) {
	logCfg, traceCfg, metricCfg := componentConfigs(Config{
		ServiceName:    "horecaalert",
		Environment:    "development",
		Version:        "1.2.3",
		LogLevel:       "debug",
		TracingEnabled: true,
		OTLPEndpoint:   "collector:4317",
		OTLPProtocol:   "grpc",
		SamplingRatio:  0.5,
	})

	assert.Equal(t, "horecaalert", logCfg.ServiceName)
	assert.True(t, logCfg.Debug)
	assert.True(t, logCfg.IncludeStackOnError)
	assert.Equal(t, "1.2.3", traceCfg.ServiceVersion)
	assert.Equal(t, "collector:4317", traceCfg.ExporterEndpoint)
	assert.Equal(t, 0.5, traceCfg.SamplingRatio)
	assert.True(t, metricCfg.Enabled)
	assert.Equal(t, "development", metricCfg.Environment)
}
