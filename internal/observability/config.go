package observability

import (
	"strings"

	"github.com/smallbiznis/horecaalert/internal/config"
)

// Config is the part of the application settings the logger, tracer and
// meter providers read.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	TracingEnabled bool
	OTLPEndpoint   string
	OTLPProtocol   string
	SamplingRatio  float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "horecaalert"
	}
	protocol := cfg.Telemetry.OTLPProtocol
	if protocol != "http" {
		protocol = "grpc"
	}
	ratio := cfg.Telemetry.SamplingRatio
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}

	return Config{
		ServiceName:    serviceName,
		Environment:    strings.TrimSpace(cfg.Environment),
		Version:        strings.TrimSpace(cfg.AppVersion),
		LogLevel:       cfg.Telemetry.LogLevel,
		LogFormat:      cfg.Telemetry.LogFormat,
		TracingEnabled: cfg.Telemetry.TracingEnabled && strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) != "",
		OTLPEndpoint:   strings.TrimSpace(cfg.Telemetry.OTLPEndpoint),
		OTLPProtocol:   protocol,
		SamplingRatio:  ratio,
	}
}

// Debug is on for debug log level and for local environments.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
