// Package config centralizes how CVDrop reads its settings and exposes them as
// strongly typed Go values. Values come from CVDROP_* environment variables,
// an optional config.yaml, and the defaults below, in that order of priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is resolved once at startup and treated as read-only afterwards.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UploadConfig drives the ingress file validator.
type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	AllowedTypes      []string `mapstructure:"allowed_types"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// ExtractionConfig holds the quality gate thresholds and the capability
// switches consulted when the extractor is built.
type ExtractionConfig struct {
	MinTextLength int      `mapstructure:"min_text_length"`
	MinWordCount  int      `mapstructure:"min_word_count"`
	Disabled      []string `mapstructure:"disabled"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	UploadDir    string `mapstructure:"upload_dir"`
	PublicPrefix string `mapstructure:"public_prefix"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
}

// QueueConfig configures the asynq client and worker.
type QueueConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Concurrency   int    `mapstructure:"concurrency"`
	MaxRetry      int    `mapstructure:"max_retry"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Storage backend names accepted by StorageConfig.Backend.
const (
	BackendLocal  = "local"
	BackendObject = "object"
	BackendMemory = "memory"
)

const (
	defaultAddress       = ":8000"
	defaultMaxFileSize   = 10 << 20 // 10 MiB
	defaultMinTextLength = 50
	defaultMinWordCount  = 10
	defaultConcurrency   = 4
	defaultMaxRetry      = 3
)

var (
	defaultAllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	defaultAllowedTypes   = []string{
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
		"text/plain",
	}
	defaultAllowedExtensions = []string{".pdf", ".docx", ".doc", ".txt"}
)

// Load reads configuration from the environment (and config.yaml when one is
// found) falling back to defaults. Out-of-range numbers are reset to their
// defaults rather than rejected; structural problems are reported by Validate.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CVDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/cvdrop")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with an empty environment.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Address:        defaultAddress,
			AllowedOrigins: append([]string(nil), defaultAllowedOrigins...),
		},
		Upload: UploadConfig{
			MaxFileSize:       defaultMaxFileSize,
			AllowedTypes:      append([]string(nil), defaultAllowedTypes...),
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
		},
		Extraction: ExtractionConfig{
			MinTextLength: defaultMinTextLength,
			MinWordCount:  defaultMinWordCount,
		},
		Storage: StorageConfig{
			Backend:      BackendLocal,
			UploadDir:    "uploads",
			PublicPrefix: "/uploads",
			Endpoint:     "localhost:9000",
			Region:       "us-east-1",
			Bucket:       "cv-uploads",
		},
		Queue: QueueConfig{
			RedisAddr:   "localhost:6379",
			Concurrency: defaultConcurrency,
			MaxRetry:    defaultMaxRetry,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("upload.max_file_size", d.Upload.MaxFileSize)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)
	v.SetDefault("upload.allowed_extensions", d.Upload.AllowedExtensions)

	v.SetDefault("extraction.min_text_length", d.Extraction.MinTextLength)
	v.SetDefault("extraction.min_word_count", d.Extraction.MinWordCount)
	v.SetDefault("extraction.disabled", []string{})

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.upload_dir", d.Storage.UploadDir)
	v.SetDefault("storage.public_prefix", d.Storage.PublicPrefix)
	v.SetDefault("storage.endpoint", d.Storage.Endpoint)
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.region", d.Storage.Region)
	v.SetDefault("storage.bucket", d.Storage.Bucket)

	v.SetDefault("queue.redis_addr", d.Queue.RedisAddr)
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", d.Queue.Concurrency)
	v.SetDefault("queue.max_retry", d.Queue.MaxRetry)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func (c *Config) normalize() {
	if c.Upload.MaxFileSize <= 0 {
		c.Upload.MaxFileSize = defaultMaxFileSize
	}
	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = defaultConcurrency
	}
	if c.Queue.MaxRetry < 0 {
		c.Queue.MaxRetry = defaultMaxRetry
	}
	c.Server.AllowedOrigins = trimList(c.Server.AllowedOrigins)
	c.Upload.AllowedTypes = trimList(c.Upload.AllowedTypes)
	c.Upload.AllowedExtensions = trimList(c.Upload.AllowedExtensions)
	c.Extraction.Disabled = trimList(c.Extraction.Disabled)
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Storage.PublicPrefix = "/" + strings.Trim(c.Storage.PublicPrefix, "/")
}

// Validate ensures the settings the pipeline depends on are usable.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.UploadDir == "" {
			return errors.New("storage upload dir cannot be empty")
		}
	case BackendObject:
		if c.Storage.Bucket == "" {
			return errors.New("storage bucket cannot be empty")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Extraction.MinTextLength < 0 || c.Extraction.MinWordCount < 0 {
		return errors.New("extraction thresholds cannot be negative")
	}
	return nil
}

// trimList drops blanks so "a, b," from the environment becomes [a b]. An
// empty result is nil.
func trimList(in []string) []string {
	var out []string
	for _, item := range in {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
