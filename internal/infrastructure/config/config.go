package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment overrides (PREDICT_SERVER_PORT, ...)
const EnvPrefix = "PREDICT"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	ML         MLConfig         `mapstructure:"ml"`
	Models     ModelsConfig     `mapstructure:"models"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Instrument InstrumentConfig `mapstructure:"instrument"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// MLConfig holds settings for the remote inference service
type MLConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ModelsConfig names the pretrained resources each adapter loads
type ModelsConfig struct {
	Text     string `mapstructure:"text"`
	Image    string `mapstructure:"image"`
	TopK     int    `mapstructure:"top_k"`
	RunText  bool   `mapstructure:"run_text"`
	RunImage bool   `mapstructure:"run_image"`
	// ImageRoot confines image paths named over HTTP; empty disables them
	ImageRoot string `mapstructure:"image_root"`
}

// RedisConfig holds the prediction cache settings
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InstrumentConfig selects where timing and call lines are written
type InstrumentConfig struct {
	Output string `mapstructure:"output"`
}

// Addr returns the redis address in host:port form
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from defaults and PREDICT_* environment variables
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith reads configuration through the given viper instance, so callers
// (the CLI) can bind flags before loading.
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	// ML service
	v.SetDefault("ml.base_url", "http://localhost:8000")
	v.SetDefault("ml.timeout", 60*time.Second)

	// Models
	v.SetDefault("models.text", "distilbert-base-uncased-finetuned-sst-2-english")
	v.SetDefault("models.image", "google/vit-base-patch16-224")
	v.SetDefault("models.top_k", 5)
	v.SetDefault("models.image_root", "")
	v.SetDefault("models.run_text", true)
	v.SetDefault("models.run_image", true)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Instrumentation
	v.SetDefault("instrument.output", "stdout")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.ML.BaseURL == "" {
		return fmt.Errorf("ml base url is required")
	}
	if c.Models.Text == "" || c.Models.Image == "" {
		return fmt.Errorf("model names are required")
	}
	if c.Models.TopK <= 0 {
		return fmt.Errorf("invalid top_k: %d", c.Models.TopK)
	}
	switch c.Instrument.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("invalid instrument output: %q", c.Instrument.Output)
	}
	return nil
}
