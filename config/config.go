package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pitabwire/util"

	"github.com/pitabwire/messageformat/cache"
	"github.com/pitabwire/messageformat/data"
	"github.com/pitabwire/messageformat/ratelimiter"
)

type contextKey string

func (c contextKey) String() string {
	return "messageformat/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

// ToContext adds configuration to the supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts configuration from the supplied context if any exists.
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

type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	CatalogDirectory string   `envDefault:"locales" env:"CATALOG_DIRECTORY" yaml:"catalog_directory"`
	CatalogFormat    string   `envDefault:"ini"     env:"CATALOG_FORMAT"    yaml:"catalog_format"`
	Locales          []string `envDefault:"en"      env:"LOCALES"           yaml:"locales"           envSeparator:","`
	DefaultLocale    string   `envDefault:"en"      env:"DEFAULT_LOCALE"    yaml:"default_locale"`

	CacheURI    string `envDefault:"mem://"        env:"CACHE_URI"     yaml:"cache_uri"`
	CacheName   string `envDefault:"messageformat" env:"CACHE_NAME"    yaml:"cache_name"`
	CacheMaxAge string `envDefault:"1h"            env:"CACHE_MAX_AGE" yaml:"cache_max_age"`

	PreloadConcurrency int `envDefault:"0" env:"PRELOAD_CONCURRENCY" yaml:"preload_concurrency"`

	HTTPServerPort string `envDefault:":8080" env:"HTTP_PORT" yaml:"http_server_port"`

	RateLimitRequestsPerSecond float64 `envDefault:"0"  env:"RATE_LIMIT_RPS"   yaml:"rate_limit_rps"`
	RateLimitBurst             int     `envDefault:"20" env:"RATE_LIMIT_BURST" yaml:"rate_limit_burst"`

	ProfilerEnable   bool   `envDefault:"false" env:"PROFILER_ENABLE" yaml:"profiler_enable"`
	ProfilerPortAddr string `envDefault:":6060" env:"PROFILER_PORT"   yaml:"profiler_port"`
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

// ConfigurationCatalog describes where catalogs live and which locales to serve.
type ConfigurationCatalog interface {
	GetCatalogDirectory() string
	GetCatalogFormat() string
	GetLocales() []string
	GetDefaultLocale() string
	GetPreloadConcurrency() int
}

var _ ConfigurationCatalog = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetCatalogDirectory() string {
	return c.CatalogDirectory
}

func (c *ConfigurationDefault) GetCatalogFormat() string {
	return strings.ToLower(strings.TrimSpace(c.CatalogFormat))
}

// GetLocales returns the configured locales trimmed, with blanks dropped. The
// default locale is used when none are configured.
func (c *ConfigurationDefault) GetLocales() []string {
	var locales []string
	for _, l := range c.Locales {
		if l = strings.TrimSpace(l); l != "" {
			locales = append(locales, l)
		}
	}
	if len(locales) == 0 && c.GetDefaultLocale() != "" {
		locales = append(locales, c.GetDefaultLocale())
	}
	return locales
}

func (c *ConfigurationDefault) GetDefaultLocale() string {
	return strings.TrimSpace(c.DefaultLocale)
}

func (c *ConfigurationDefault) GetPreloadConcurrency() int {
	return c.PreloadConcurrency
}

type ConfigurationCache interface {
	GetCacheURI() data.DSN
	GetCacheName() string
	GetCacheMaxAge() time.Duration
	CacheOptions() []cache.Option
}

var _ ConfigurationCache = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetCacheURI() data.DSN {
	return data.DSN(strings.TrimSpace(c.CacheURI))
}

func (c *ConfigurationDefault) GetCacheName() string {
	if c.CacheName != "" {
		return c.CacheName
	}
	return cache.DefaultName
}

func (c *ConfigurationDefault) GetCacheMaxAge() time.Duration {
	if c.CacheMaxAge != "" {
		duration, err := time.ParseDuration(c.CacheMaxAge)
		if err == nil && duration > 0 {
			return duration
		}
	}

	return cache.DefaultMaxAge
}

// CacheOptions translates the cache settings into options for catalog.OpenStore.
func (c *ConfigurationDefault) CacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithDSN(c.GetCacheURI()),
		cache.WithName(c.GetCacheName()),
		cache.WithMaxAge(c.GetCacheMaxAge()),
	}
}

type ConfigurationPorts interface {
	HTTPPort() string
}

var _ ConfigurationPorts = new(ConfigurationDefault)

func (c *ConfigurationDefault) HTTPPort() string {
	if i, err := strconv.Atoi(c.HTTPServerPort); err == nil && i > 0 {
		return fmt.Sprintf(":%s", strings.TrimSpace(c.HTTPServerPort))
	}

	if strings.HasPrefix(c.HTTPServerPort, ":") || strings.Contains(c.HTTPServerPort, ":") {
		return c.HTTPServerPort
	}

	return ":8080"
}

type ConfigurationRateLimit interface {
	RateLimiterConfig() ratelimiter.Config
}

var _ ConfigurationRateLimit = new(ConfigurationDefault)

// RateLimiterConfig returns the per client limits for the HTTP server; zero
// requests per second disables limiting.
func (c *ConfigurationDefault) RateLimiterConfig() ratelimiter.Config {
	return ratelimiter.Config{
		RequestsPerSecond: c.RateLimitRequestsPerSecond,
		BurstSize:         c.RateLimitBurst,
	}
}

type ConfigurationProfiler interface {
	ProfilerEnabled() bool
	ProfilerPort() string
}

var _ ConfigurationProfiler = new(ConfigurationDefault)

func (c *ConfigurationDefault) ProfilerEnabled() bool {
	return c.ProfilerEnable
}

func (c *ConfigurationDefault) ProfilerPort() string {
	if c.ProfilerPortAddr != "" {
		return c.ProfilerPortAddr
	}
	return ":6060"
}

// NewLogger builds a logger honouring the logging settings of cfg. Extra
// options are applied after the configured ones.
func NewLogger(ctx context.Context, cfg ConfigurationLogLevel, opts ...util.Option) *util.LogEntry {
	var logOpts []util.Option
	if cfg != nil {
		logLevel, err := util.ParseLevel(cfg.LoggingLevel())
		if err == nil {
			logOpts = append(logOpts, util.WithLogLevel(logLevel))
		}
		logOpts = append(logOpts,
			util.WithLogTimeFormat(cfg.LoggingTimeFormat()),
			util.WithLogNoColor(!cfg.LoggingColored()))
		if cfg.LoggingLevelIsDebug() {
			logOpts = append(logOpts, util.WithLogStackTrace())
		}
	}

	return util.NewLogger(ctx, append(logOpts, opts...)...)
}
