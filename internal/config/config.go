package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewTuningHolder,
	),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	// SnowflakeNode must differ per replica.
	SnowflakeNode int64

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// CronSecret authenticates the external trigger. Empty means misconfigured.
	CronSecret       string
	InternalAPIToken string
	PublicBaseURL    string
	// SeedDemoData inserts a demo user, alert and listings outside production.
	SeedDemoData bool

	Email       EmailConfig
	Redis       RedisConfig
	Scheduler   SchedulerConfig
	MetricsPush MetricsPushConfig
	Slack       SlackConfig
}

// TelemetryConfig drives the zap logger and the otel trace and metric
// exporters.
type TelemetryConfig struct {
	LogLevel       string
	LogFormat      string
	TracingEnabled bool
	OTLPEndpoint   string
	// OTLPProtocol is grpc or http.
	OTLPProtocol  string
	SamplingRatio float64
}

type EmailConfig struct {
	Provider     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type RedisConfig struct {
	URL     string
	LockTTL time.Duration
	// TriggerRate is the sustained number of cron triggers allowed per second.
	// Zero disables trigger throttling.
	TriggerRate  float64
	TriggerBurst int
}

type SchedulerConfig struct {
	Enabled    bool
	Spec       string
	RunTimeout time.Duration
}

// SlackConfig enables run failure notices on an incoming webhook.
type SlackConfig struct {
	WebhookURL string
	Channel    string
}

type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:           getenv("APP_SERVICE", "horecaalert"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		SnowflakeNode:     int64(getenvInt("SNOWFLAKE_NODE", 1)),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "horeca"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "horeca.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		CronSecret:        strings.TrimSpace(os.Getenv("CRON_SECRET")),
		InternalAPIToken:  strings.TrimSpace(os.Getenv("INTERNAL_API_TOKEN")),
		PublicBaseURL:     strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		SeedDemoData:      getenvBool("SEED_DEMO_DATA", false),
		Email: EmailConfig{
			Provider:     strings.ToLower(getenv("EMAIL_PROVIDER", "smtp")),
			SMTPHost:     getenv("SMTP_HOST", "localhost"),
			SMTPPort:     getenvInt("SMTP_PORT", 1025),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "alerts@localhost"),
		},
		Redis: RedisConfig{
			URL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
			LockTTL:      getenvDuration("REDIS_LOCK_TTL", 15*time.Minute),
			TriggerRate:  getenvFloat("CRON_TRIGGER_RATE", 1.0/60),
			TriggerBurst: getenvInt("CRON_TRIGGER_BURST", 3),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getenvBool("SCHEDULER_ENABLED", false),
			Spec:       getenv("SCHEDULER_SPEC", "@every 24h"),
			RunTimeout: getenvDuration("SCHEDULER_RUN_TIMEOUT", 10*time.Minute),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_PUSH_EXPORTER"))),
			Endpoint:  strings.TrimSpace(os.Getenv("METRICS_PUSH_ENDPOINT")),
			AuthToken: strings.TrimSpace(os.Getenv("METRICS_PUSH_AUTH_TOKEN")),
		},
		Telemetry: TelemetryConfig{
			LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
			LogFormat:      strings.ToLower(getenv("LOG_FORMAT", "json")),
			TracingEnabled: getenvBool("OTEL_ENABLED", false),
			OTLPEndpoint:   getenv("OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:   strings.ToLower(getenv("OTLP_PROTOCOL", "grpc")),
			SamplingRatio:  getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Slack: SlackConfig{
			WebhookURL: strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
			Channel:    strings.TrimSpace(os.Getenv("SLACK_CHANNEL")),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
