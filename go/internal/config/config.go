package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the photo wall server
type Config struct {
	Port      string `yaml:"port"`
	PublicURL string `yaml:"public_url"` // join link shown on the wall; derived from the LAN IP when empty
	StaticDir string `yaml:"static_dir"` // built frontend, served with SPA fallback when set
	LogLevel  string `yaml:"log_level"`

	Storage StorageConfig `yaml:"storage"`
	Upload  UploadConfig  `yaml:"upload"`
	Gateway GatewayConfig `yaml:"gateway"`
	NATS    NATSConfig    `yaml:"nats"`
	Redis   RedisConfig   `yaml:"redis"`
}

// StorageConfig selects and configures the image byte store
type StorageConfig struct {
	Backend     string        `yaml:"backend"` // "local" or "s3"
	UploadDir   string        `yaml:"upload_dir"`
	URLPrefix   string        `yaml:"url_prefix"`
	Timeout     time.Duration `yaml:"timeout"`
	S3Bucket    string        `yaml:"s3_bucket"`
	S3Region    string        `yaml:"s3_region"`
	S3Endpoint  string        `yaml:"s3_endpoint"`   // MinIO, LocalStack, ...
	S3PublicURL string        `yaml:"s3_public_url"` // base URL viewers load objects from
	S3Prefix    string        `yaml:"s3_prefix"`
}

// UploadConfig limits what participants can submit
type UploadConfig struct {
	MaxMB         int64 `yaml:"max_mb"`
	RatePerMinute int   `yaml:"rate_per_minute"`
	Burst         int   `yaml:"burst"`
}

// GatewayConfig tunes viewer delivery
type GatewayConfig struct {
	SendBuffer int `yaml:"send_buffer"`
}

// NATSConfig enables the JetStream event relay when URL is set
type NATSConfig struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// RedisConfig switches upload rate limiting to a shared Redis counter when URL is set
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:     "3001",
		LogLevel: "info",
		Storage: StorageConfig{
			Backend:   "local",
			UploadDir: "uploads",
			URLPrefix: "/uploads",
			Timeout:   30 * time.Second,
			S3Region:  "us-east-1",
		},
		Upload: UploadConfig{
			MaxMB:         25,
			RatePerMinute: 30,
			Burst:         10,
		},
		Gateway: GatewayConfig{
			SendBuffer: 256,
		},
		NATS: NATSConfig{
			StreamName:    "GALLERY_EVENTS",
			SubjectPrefix: "gallery.events",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if any),
// then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewConfigFromEnv reads configuration from the environment only
func NewConfigFromEnv() (*Config, error) {
	return Load("")
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.Timeout <= 0 {
		return fmt.Errorf("storage timeout must be positive, got %s", c.Storage.Timeout)
	}
	if c.Upload.MaxMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d MB", c.Upload.MaxMB)
	}
	if c.Upload.RatePerMinute <= 0 {
		return fmt.Errorf("UPLOAD_RATE_PER_MIN must be positive, got %d", c.Upload.RatePerMinute)
	}
	if c.Upload.Burst <= 0 {
		return fmt.Errorf("UPLOAD_BURST must be positive, got %d", c.Upload.Burst)
	}
	return nil
}

// MaxUploadBytes returns the upload size limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.Upload.MaxMB << 20
}

func applyEnv(c *Config) {
	c.Port = getEnv("PORT", c.Port)
	c.PublicURL = getEnv("PUBLIC_URL", c.PublicURL)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.UploadDir = getEnv("UPLOAD_DIR", c.Storage.UploadDir)
	c.Storage.URLPrefix = getEnv("UPLOAD_URL_PREFIX", c.Storage.URLPrefix)
	c.Storage.Timeout = getEnvAsDuration("STORAGE_TIMEOUT", c.Storage.Timeout)
	c.Storage.S3Bucket = getEnv("S3_BUCKET", c.Storage.S3Bucket)
	c.Storage.S3Region = getEnv("S3_REGION", getEnv("AWS_REGION", c.Storage.S3Region))
	c.Storage.S3Endpoint = getEnv("S3_ENDPOINT", c.Storage.S3Endpoint)
	c.Storage.S3PublicURL = getEnv("S3_PUBLIC_URL", c.Storage.S3PublicURL)
	c.Storage.S3Prefix = getEnv("S3_PREFIX", c.Storage.S3Prefix)

	c.Upload.MaxMB = int64(getEnvAsInt("MAX_UPLOAD_MB", int(c.Upload.MaxMB)))
	c.Upload.RatePerMinute = getEnvAsInt("UPLOAD_RATE_PER_MIN", c.Upload.RatePerMinute)
	c.Upload.Burst = getEnvAsInt("UPLOAD_BURST", c.Upload.Burst)

	c.Gateway.SendBuffer = getEnvAsInt("SEND_BUFFER", c.Gateway.SendBuffer)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.StreamName = getEnv("NATS_STREAM", c.NATS.StreamName)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
