package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TuningConfig holds matching knobs that can change without a restart.
type TuningConfig struct {
	CandidateWindow  time.Duration            `mapstructure:"candidateWindow"`
	FrequencyWindows map[string]time.Duration `mapstructure:"frequencyWindows"`
	TemplateID       string                   `mapstructure:"templateId"`
	MaxPairsPerRun   int                      `mapstructure:"maxPairsPerRun"`
}

func DefaultTuningConfig() TuningConfig {
	return TuningConfig{
		CandidateWindow: 24 * time.Hour,
		FrequencyWindows: map[string]time.Duration{
			"instant": 0,
			"daily":   24 * time.Hour,
			"weekly":  7 * 24 * time.Hour,
		},
		TemplateID:     "search_alert_match",
		MaxPairsPerRun: 0,
	}
}

// FrequencyWindow returns the configured window for a frequency tier.
func (c TuningConfig) FrequencyWindow(frequency string) (time.Duration, bool) {
	window, ok := c.FrequencyWindows[strings.ToLower(strings.TrimSpace(frequency))]
	return window, ok
}

type TuningHolder struct {
	current atomic.Value // holds TuningConfig
}

// NewStaticTuning returns a holder that never reloads.
func NewStaticTuning(cfg TuningConfig) *TuningHolder {
	holder := &TuningHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewTuningHolder(log *zap.Logger) (*TuningHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.tuning")

	v := viper.New()
	v.SetConfigName("alerts")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/horecaalert")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HORECA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTuningConfig()
	v.SetDefault("alerts.candidateWindow", defaults.CandidateWindow)
	v.SetDefault("alerts.frequencyWindows", defaults.FrequencyWindows)
	v.SetDefault("alerts.templateId", defaults.TemplateID)
	v.SetDefault("alerts.maxPairsPerRun", defaults.MaxPairsPerRun)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeTuning(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticTuning(cfg)
	if !fileLoaded {
		log.Info("tuning file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeTuning(v)
		if err != nil {
			log.Warn("tuning reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("tuning reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *TuningHolder) Get() TuningConfig {
	if h == nil {
		return DefaultTuningConfig()
	}
	return h.current.Load().(TuningConfig)
}

func decodeTuning(v *viper.Viper) (TuningConfig, error) {
	var cfg TuningConfig
	if err := v.UnmarshalKey("alerts", &cfg); err != nil {
		return TuningConfig{}, err
	}
	if err := validateTuning(cfg); err != nil {
		return TuningConfig{}, err
	}
	return cfg, nil
}

func validateTuning(cfg TuningConfig) error {
	if cfg.CandidateWindow <= 0 {
		return errors.New("alerts.candidateWindow must be positive")
	}
	if strings.TrimSpace(cfg.TemplateID) == "" {
		return errors.New("alerts.templateId cannot be empty")
	}
	if cfg.MaxPairsPerRun < 0 {
		return errors.New("alerts.maxPairsPerRun cannot be negative")
	}
	for name, window := range cfg.FrequencyWindows {
		if window < 0 {
			return fmt.Errorf("alerts.frequencyWindows.%s cannot be negative", name)
		}
	}
	return nil
}
