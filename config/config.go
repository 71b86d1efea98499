package config

import (
	"context"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "shipyard/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

// ToContext adds configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

type Configuration struct {
	LogLevel   string `envDefault:"info" env:"LOG_LEVEL"   yaml:"log_level"`
	LogColored bool   `envDefault:"true" env:"LOG_COLORED" yaml:"log_colored"`

	Language        string `envDefault:""             env:"SHIPYARD_LANGUAGE"         yaml:"language"`
	TranslationsDir string `envDefault:"localization" env:"SHIPYARD_TRANSLATIONS_DIR" yaml:"translations_dir"`

	TargetsPath string `envDefault:"targets.yaml" env:"SHIPYARD_TARGETS_PATH" yaml:"targets_path"`

	WorkerPoolCapacity       int    `envDefault:"64" env:"WORKER_POOL_CAPACITY"        yaml:"worker_pool_capacity"`
	WorkerPoolCount          int    `envDefault:"1"  env:"WORKER_POOL_COUNT"           yaml:"worker_pool_count"`
	WorkerPoolExpiryDuration string `envDefault:"1s" env:"WORKER_POOL_EXPIRY_DURATION" yaml:"worker_pool_expiry_duration"`
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(Configuration)

func (c *Configuration) LoggingLevel() string {
	return c.LogLevel
}

func (c *Configuration) LoggingColored() bool {
	return c.LogColored
}

func (c *Configuration) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

type ConfigurationLocalization interface {
	GetLanguage() string
	GetTranslationsDir() string
}

var _ ConfigurationLocalization = new(Configuration)

func (c *Configuration) GetLanguage() string {
	return strings.ToLower(strings.TrimSpace(c.Language))
}

func (c *Configuration) GetTranslationsDir() string {
	return c.TranslationsDir
}

type ConfigurationTargets interface {
	GetTargetsPath() string
}

var _ ConfigurationTargets = new(Configuration)

func (c *Configuration) GetTargetsPath() string {
	if strings.TrimSpace(c.TargetsPath) == "" {
		return "targets.yaml"
	}
	return c.TargetsPath
}

type ConfigurationWorkerPool interface {
	GetCapacity() int
	GetCount() int
	GetExpiryDuration() time.Duration
}

var _ ConfigurationWorkerPool = new(Configuration)

func (c *Configuration) GetCapacity() int {
	return c.WorkerPoolCapacity
}

func (c *Configuration) GetCount() int {
	return c.WorkerPoolCount
}

func (c *Configuration) GetExpiryDuration() time.Duration {
	if c.WorkerPoolExpiryDuration != "" {
		duration, err := time.ParseDuration(c.WorkerPoolExpiryDuration)
		if err == nil {
			return duration
		}
	}

	return time.Second
}
