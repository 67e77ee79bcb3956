package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"wineclass/logging"
)

// Config holds everything the service needs at startup.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Model   ModelConfig    `yaml:"model"`
	Cache   CacheConfig    `yaml:"cache"`
	Log     logging.Config `yaml:"log"`
	Monitor MonitorConfig  `yaml:"monitor"`
}

// Timeouts are whole seconds; yaml.v2 does not decode time.Duration.
type ServerConfig struct {
	Host                string   `yaml:"host"`
	Port                int      `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
	ShutdownSeconds     int      `yaml:"shutdown_seconds"`
	MaxBodyBytes        int64    `yaml:"max_body_bytes"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
}

type ModelConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

type MonitorConfig struct {
	StreamIntervalSeconds int `yaml:"stream_interval_seconds"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}

func (m MonitorConfig) StreamInterval() time.Duration {
	return time.Duration(m.StreamIntervalSeconds) * time.Second
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8000,
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 10,
			IdleTimeoutSeconds:  60,
			ShutdownSeconds:     10,
			MaxBodyBytes:        1 << 20,
			AllowedOrigins:      []string{"*"},
		},
		Model: ModelConfig{
			Path: "models/wine_classifier.json",
		},
		Cache: CacheConfig{
			Size: 256,
		},
		Log: logging.Config{
			Level:   "info",
			Console: true,
		},
		Monitor: MonitorConfig{
			StreamIntervalSeconds: 5,
		},
	}
}

// Load reads the YAML file at path and overlays environment variables on top.
// A missing file is not an error; defaults plus environment apply. A file
// that exists but cannot be parsed is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := readFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Model.Path = getEnv("MODEL_PATH", cfg.Model.Path)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Cache.Size = getEnvInt("CACHE_SIZE", cfg.Cache.Size)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model path is required")
	}
	if c.Server.ReadTimeoutSeconds <= 0 || c.Server.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}
