// Package env assembles the process configuration from defaults, an optional
// YAML file, a .env file and the environment, in that order of precedence.
package env

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Duration time.Duration `yaml:"duration"`
}

type PushConfig struct {
	Enabled         bool          `yaml:"enabled"`
	VAPIDPublicKey  string        `yaml:"vapid_public_key"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key"`
	Subscriber      string        `yaml:"subscriber"`
	TTL             int           `yaml:"ttl"`
	Timeout         time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	HTTP            HTTPConfig  `yaml:"http"`
	Mongo           MongoConfig `yaml:"mongo"`
	Redis           RedisConfig `yaml:"redis"`
	S3              S3Config    `yaml:"s3"`
	JWT             JWTConfig   `yaml:"jwt"`
	Push            PushConfig  `yaml:"push"`
	Log             LogConfig   `yaml:"log"`
	SubmissionRoles []string    `yaml:"submission_roles"`
}

const insecureJWTSecret = "default-secret-key-change-in-production"

func Defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			CORSOrigins:       []string{"*"},
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Mongo: MongoConfig{URI: "mongodb://localhost:27017", Database: "prodreport"},
		Redis: RedisConfig{Addr: "localhost:6379", Channel: "prodreport:notifications"},
		S3:    S3Config{Region: "us-east-1"},
		JWT:   JWTConfig{Secret: insecureJWTSecret, Duration: 24 * time.Hour},
		Push: PushConfig{
			Subscriber: "mailto:admin@example.com",
			TTL:        3600,
			Timeout:    30 * time.Second,
		},
		Log:             LogConfig{Level: "info", Format: "json"},
		SubmissionRoles: []string{"admin", "viewer"},
	}
}

// Load builds the configuration. An empty path skips the YAML file; a
// missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTP.Addr = GetEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.CORSOrigins = GetEnv("CORS_ORIGINS", c.HTTP.CORSOrigins)
	c.HTTP.ShutdownTimeout = GetEnv("HTTP_SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)

	c.Mongo.URI = GetEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = GetEnv("MONGO_DB", c.Mongo.Database)

	c.Redis.Enabled = GetEnv("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = GetEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = GetEnv("REDIS_DB", c.Redis.DB)
	c.Redis.Channel = GetEnv("REDIS_CHANNEL", c.Redis.Channel)

	c.S3.Enabled = GetEnv("S3_ENABLED", c.S3.Enabled)
	c.S3.Bucket = GetEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.Endpoint = GetEnv("AWS_ENDPOINT", c.S3.Endpoint)
	c.S3.Region = GetEnv("AWS_REGION", c.S3.Region)
	c.S3.AccessKey = GetEnv("AWS_ACCESS_KEY_ID", c.S3.AccessKey)
	c.S3.SecretKey = GetEnv("AWS_SECRET_ACCESS_KEY", c.S3.SecretKey)
	c.S3.PathStyle = GetEnv("S3_PATH_STYLE", c.S3.PathStyle)

	c.JWT.Secret = GetEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.Duration = GetEnv("JWT_DURATION", c.JWT.Duration)

	c.Push.Enabled = GetEnv("PUSH_ENABLED", c.Push.Enabled)
	c.Push.VAPIDPublicKey = GetEnv("VAPID_PUBLIC_KEY", c.Push.VAPIDPublicKey)
	c.Push.VAPIDPrivateKey = GetEnv("VAPID_PRIVATE_KEY", c.Push.VAPIDPrivateKey)
	c.Push.Subscriber = GetEnv("VAPID_SUBSCRIBER", c.Push.Subscriber)
	c.Push.TTL = GetEnv("PUSH_TTL", c.Push.TTL)
	c.Push.Timeout = GetEnv("PUSH_TIMEOUT", c.Push.Timeout)

	c.Log.Level = GetEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetEnv("LOG_FORMAT", c.Log.Format)

	c.SubmissionRoles = GetEnv("SUBMISSION_ROLES", c.SubmissionRoles)
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http address is required")
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		return errors.New("mongo uri and database are required")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return errors.New("S3_BUCKET is required when S3 is enabled")
	}
	if c.Push.Enabled && (c.Push.VAPIDPublicKey == "" || c.Push.VAPIDPrivateKey == "") {
		return errors.New("VAPID keys are required when push is enabled")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}

// InsecureJWT reports whether the built-in development secret is in use.
func (c *Config) InsecureJWT() bool {
	return c.JWT.Secret == insecureJWTSecret
}
