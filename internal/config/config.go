package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Rubric  RubricConfig  `yaml:"rubric" mapstructure:"rubric"`
	Routing RoutingConfig `yaml:"routing" mapstructure:"routing"`
	State   StateConfig   `yaml:"state" mapstructure:"state"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the envelope store backend.
type StoreConfig struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	Redis       RedisConfig `yaml:"redis" mapstructure:"redis"`
	MaxConns    int32       `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32       `yaml:"min_conns" mapstructure:"min_conns"`
}

// RedisConfig configures the redis store backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// RubricConfig configures the remote scoring config fetch.
type RubricConfig struct {
	URL              string `yaml:"url" mapstructure:"url"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int    `yaml:"max_retries" mapstructure:"max_retries"`
	MaxCacheTTLSecs  int    `yaml:"max_cache_ttl_secs" mapstructure:"max_cache_ttl_secs"`
	StrictThresholds bool   `yaml:"strict_thresholds" mapstructure:"strict_thresholds"`
}

// Timeout returns the fetch timeout as a duration.
func (r RubricConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSecs) * time.Second
}

// MaxCacheTTL returns the cache ceiling as a duration.
func (r RubricConfig) MaxCacheTTL() time.Duration {
	return time.Duration(r.MaxCacheTTLSecs) * time.Second
}

// RoutingConfig configures destination building.
type RoutingConfig struct {
	BookingPath string `yaml:"booking_path" mapstructure:"booking_path"`
}

// StateConfig configures the cross-page state TTLs.
type StateConfig struct {
	TTLHours int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the record TTL as a duration.
func (s StateConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("rubric.url", "https://mat1017.github.io/ecom/config/lead-scoring-config.json")
	v.SetDefault("rubric.timeout_secs", 10)
	v.SetDefault("rubric.max_retries", 3)
	v.SetDefault("rubric.max_cache_ttl_secs", 900)
	v.SetDefault("rubric.strict_thresholds", false)
	v.SetDefault("routing.booking_path", "/call-booking")
	v.SetDefault("state.ttl_hours", 24)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
