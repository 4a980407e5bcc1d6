// Package config provides configuration management for profvis.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
	"github.com/profvis/pkg/telemetry"
)

// EnvPrefix prefixes environment overrides, e.g. PROFVIS_PIPELINE_TOP_N.
const EnvPrefix = "PROFVIS"

// Config holds all configuration for the application.
type Config struct {
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// PipelineConfig controls rendering.
type PipelineConfig struct {
	// DefaultInterval is the tick length in ms for messages without one.
	DefaultInterval float64            `mapstructure:"default_interval"`
	Markers         []model.MarkerPair `mapstructure:"markers"`
	HideZeroLines   bool               `mapstructure:"hide_zero_lines"`
	TopN            int                `mapstructure:"top_n"`
	Workers         int                `mapstructure:"workers"`
	OutputDir       string             `mapstructure:"output_dir"`
	Compression     string             `mapstructure:"compression"` // none, gzip or zstd
}

// StorageConfig holds message source configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"` // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`
	Prefix    string `mapstructure:"prefix"`
	LocalPath string `mapstructure:"local_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	MaxDecodedBytes int64         `mapstructure:"max_decoded_bytes"` // after decompression
	CacheSize       int           `mapstructure:"cache_size"`        // rendered stored profiles
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty means stderr
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	Sampler     string  `mapstructure:"sampler"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration from configPath, or from config.yaml in the
// usual locations when configPath is empty. A missing file means defaults.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/profvis")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config file", err)
		}
	}
	return decode(v)
}

// LoadFromReader loads configuration from content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config", err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.default_interval", 10.0)
	v.SetDefault("pipeline.markers", []model.MarkerPair{})
	v.SetDefault("pipeline.hide_zero_lines", false)
	v.SetDefault("pipeline.top_n", 20)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.output_dir", "./out")
	v.SetDefault("pipeline.compression", "none")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./profiles")
	v.SetDefault("storage.domain", "myqcloud.com")
	v.SetDefault("storage.scheme", "https")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(64<<20))
	v.SetDefault("server.max_decoded_bytes", int64(256<<20))
	v.SetDefault("server.cache_size", 64)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.protocol", "grpc")
	v.SetDefault("telemetry.sampler", "always_on")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !(c.Pipeline.DefaultInterval > 0) {
		return apperrors.Newf(apperrors.CodeConfigError, "pipeline.default_interval must be positive, got %v", c.Pipeline.DefaultInterval)
	}
	if c.Pipeline.Workers < 1 {
		return apperrors.New(apperrors.CodeConfigError, "pipeline.workers must be at least 1")
	}
	if c.Pipeline.TopN < 0 {
		return apperrors.New(apperrors.CodeConfigError, "pipeline.top_n must not be negative")
	}
	switch c.Pipeline.Compression {
	case "none", "gzip", "zstd":
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported compression: %s", c.Pipeline.Compression)
	}
	for i, m := range c.Pipeline.Markers {
		if m.Off == "" || m.On == "" {
			return apperrors.Newf(apperrors.CodeConfigError, "pipeline.markers[%d] needs both off and on labels", i)
		}
	}

	switch c.Storage.Type {
	case "local", "cos":
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}

// TracingConfig converts the telemetry section, then applies OTEL_*
// environment overrides on top.
func (c *Config) TracingConfig(serviceVersion string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.Enabled = c.Telemetry.Enabled
	tc.Endpoint = c.Telemetry.Endpoint
	tc.Protocol = c.Telemetry.Protocol
	tc.Insecure = c.Telemetry.Insecure
	tc.Sampler = c.Telemetry.Sampler
	tc.SampleRatio = c.Telemetry.SampleRatio
	if serviceVersion != "" {
		tc.ServiceVersion = serviceVersion
	}
	return tc.ApplyEnv()
}
