package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Store backends.
const (
	BackendAuto     = "auto"
	BackendMemory   = "memory"
	BackendDatabase = "database"
)

// Database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// AI providers.
const (
	ProviderNone         = "none"
	ProviderOpenAI       = "openai"
	ProviderAnthropic    = "anthropic"
	ProviderTransformers = "transformers"
)

// Server holds HTTP settings.
type Server struct {
	Addr      string `toml:"addr"`
	WebAppDir string `toml:"web_app_dir"`
}

// Store selects the entity store backend.
type Store struct {
	Backend string `toml:"backend"`
}

// Database holds relational backend settings.
type Database struct {
	Driver       string `toml:"driver"`
	Host         string `toml:"host"`
	Port         string `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Name         string `toml:"name"`
	SQLitePath   string `toml:"sqlite_path"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxOpenConns int    `toml:"max_open_conns"`
	Debug        bool   `toml:"debug"`
}

// Paths holds the shared upload and output directories.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
	// PublicPrefix is the URL prefix under which UploadDir is served.
	PublicPrefix string `toml:"public_prefix"`
}

// Jobs holds job processor settings.
type Jobs struct {
	StemLatencyMillis  int `toml:"stem_latency_ms"`
	VoiceLatencyMillis int `toml:"voice_latency_ms"`
	MusicLatencyMillis int `toml:"music_latency_ms"`
	TimeoutSeconds     int `toml:"timeout_seconds"`
}

// AI holds provider selection and credentials.
type AI struct {
	Provider              string `toml:"provider"`
	OpenAIAPIKey          string `toml:"openai_api_key"`
	OpenAIBaseURL         string `toml:"openai_base_url"`
	OpenAIModel           string `toml:"openai_model"`
	AnthropicAPIKey       string `toml:"anthropic_api_key"`
	AnthropicBaseURL      string `toml:"anthropic_base_url"`
	AnthropicModel        string `toml:"anthropic_model"`
	TransformersURL       string `toml:"transformers_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Redis holds the job event mirror settings.
type Redis struct {
	Enabled          bool   `toml:"enabled"`
	Host             string `toml:"host"`
	Port             string `toml:"port"`
	Password         string `toml:"password"`
	DB               int    `toml:"db"`
	Channel          string `toml:"channel"`
	StatusTTLMinutes int    `toml:"status_ttl_minutes"`
}

// Minio holds object storage settings for job artifacts.
type Minio struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Log holds logger settings.
type Log struct {
	Level      string `toml:"level"`
	OutputPath string `toml:"output_path"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
}

// Demo holds the credentials of the seeded demo user.
type Demo struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Config stores the application configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Store    Store    `toml:"store"`
	Database Database `toml:"database"`
	Paths    Paths    `toml:"paths"`
	Jobs     Jobs     `toml:"jobs"`
	AI       AI       `toml:"ai"`
	Redis    Redis    `toml:"redis"`
	Minio    Minio    `toml:"minio"`
	Log      Log      `toml:"log"`
	Demo     Demo     `toml:"demo"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", WebAppDir: filepath.Join("web", "ui")},
		Store:  Store{Backend: BackendAuto},
		Database: Database{
			Driver:       DriverMySQL,
			Host:         "127.0.0.1",
			Port:         "3306",
			User:         "root",
			Name:         "aistudio",
			SQLitePath:   filepath.Join("data", "aistudio.db"),
			MaxIdleConns: 10,
			MaxOpenConns: 100,
		},
		Paths: Paths{
			UploadDir:    "uploads",
			OutputDir:    filepath.Join("uploads", "outputs"),
			PublicPrefix: "/uploads",
		},
		Jobs: Jobs{
			StemLatencyMillis:  3000,
			VoiceLatencyMillis: 4000,
			MusicLatencyMillis: 5000,
			TimeoutSeconds:     300,
		},
		AI: AI{
			Provider:              ProviderNone,
			OpenAIBaseURL:         "https://api.openai.com/v1",
			OpenAIModel:           "gpt-4o",
			AnthropicBaseURL:      "https://api.anthropic.com/v1",
			AnthropicModel:        "claude-3-7-sonnet-20250219",
			TransformersURL:       "http://127.0.0.1:5000",
			RequestTimeoutSeconds: 60,
		},
		Redis: Redis{
			Host:             "127.0.0.1",
			Port:             "6379",
			Channel:          "aistudio:jobs",
			StatusTTLMinutes: 60,
		},
		Minio: Minio{Bucket: "aistudio", Region: "us-east-1"},
		Log: Log{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
		Demo: Demo{Username: "demo", Password: "password"},
	}
}

// Load builds the configuration from defaults, the optional TOML file at
// path, and finally the environment (a .env file in the working directory is
// loaded first and never overrides variables that are already set).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config file %s not found", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("STUDIO_ADDR", c.Server.Addr)
	c.Server.WebAppDir = getEnv("STUDIO_WEB_DIR", c.Server.WebAppDir)
	c.Store.Backend = getEnv("STUDIO_STORE", c.Store.Backend)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SQLitePath = getEnv("DB_SQLITE_PATH", c.Database.SQLitePath)

	c.Paths.UploadDir = getEnv("STUDIO_UPLOAD_DIR", c.Paths.UploadDir)
	c.Paths.OutputDir = getEnv("STUDIO_OUTPUT_DIR", c.Paths.OutputDir)

	c.Jobs.TimeoutSeconds = getEnvInt("STUDIO_JOB_TIMEOUT_SECONDS", c.Jobs.TimeoutSeconds)

	c.AI.Provider = getEnv("STUDIO_AI_PROVIDER", c.AI.Provider)
	c.AI.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.AI.OpenAIAPIKey)
	c.AI.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.AI.OpenAIBaseURL)
	c.AI.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AI.AnthropicAPIKey)
	c.AI.TransformersURL = getEnv("TRANSFORMERS_URL", c.AI.TransformersURL)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Minio.Enabled = getEnvBool("MINIO_ENABLED", c.Minio.Enabled)
	c.Minio.Endpoint = getEnv("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.Bucket = getEnv("MINIO_BUCKET", c.Minio.Bucket)
	c.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", c.Minio.UseSSL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.OutputPath = getEnv("LOG_OUTPUT_PATH", c.Log.OutputPath)
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendAuto, BackendMemory, BackendDatabase:
	default:
		return fmt.Errorf("store.backend must be one of auto, memory, database (got %q)", c.Store.Backend)
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be mysql or sqlite (got %q)", c.Database.Driver)
	}
	switch c.AI.Provider {
	case ProviderNone, ProviderOpenAI, ProviderAnthropic, ProviderTransformers:
	default:
		return fmt.Errorf("ai.provider must be one of none, openai, anthropic, transformers (got %q)", c.AI.Provider)
	}
	if c.AI.Provider == ProviderOpenAI && strings.TrimSpace(c.AI.OpenAIAPIKey) == "" {
		return errors.New("ai.openai_api_key is required when ai.provider is openai (or set OPENAI_API_KEY)")
	}
	if c.AI.Provider == ProviderAnthropic && strings.TrimSpace(c.AI.AnthropicAPIKey) == "" {
		return errors.New("ai.anthropic_api_key is required when ai.provider is anthropic (or set ANTHROPIC_API_KEY)")
	}
	if c.Jobs.StemLatencyMillis < 0 || c.Jobs.VoiceLatencyMillis < 0 || c.Jobs.MusicLatencyMillis < 0 {
		return errors.New("jobs latencies must be >= 0")
	}
	if c.Jobs.TimeoutSeconds < 0 || c.AI.RequestTimeoutSeconds < 0 || c.Redis.StatusTTLMinutes < 0 {
		return errors.New("timeouts must be >= 0")
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.Bucket == "") {
		return errors.New("minio.endpoint and minio.bucket are required when minio is enabled")
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" || strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.upload_dir and paths.output_dir must be set")
	}
	return nil
}

// EnsureDirectories creates the upload and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Log.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.Log.OutputPath), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	return nil
}

// JobTimeout returns the per-job timeout, or zero for none.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Jobs.TimeoutSeconds) * time.Second
}

// Latency returns the simulated work duration for a job kind.
func (j Jobs) Latency(kind string) time.Duration {
	switch kind {
	case "stem-separation":
		return time.Duration(j.StemLatencyMillis) * time.Millisecond
	case "voice-cloning":
		return time.Duration(j.VoiceLatencyMillis) * time.Millisecond
	case "music-generation":
		return time.Duration(j.MusicLatencyMillis) * time.Millisecond
	}
	return 0
}

// AIRequestTimeout returns the HTTP timeout for AI provider calls.
func (c *Config) AIRequestTimeout() time.Duration {
	return time.Duration(c.AI.RequestTimeoutSeconds) * time.Second
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// StatusTTL returns how long last-status keys live in redis.
func (c *Config) StatusTTL() time.Duration {
	return time.Duration(c.Redis.StatusTTLMinutes) * time.Minute
}
