package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "FINTASTIC"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Backend   BackendConfig   `yaml:"backend" envconfig:"BACKEND"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"5m"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ForecastTimeout time.Duration `yaml:"forecast_timeout" envconfig:"FORECAST_TIMEOUT" default:"5m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	JWTSecret      string          `yaml:"jwt_secret" envconfig:"JWT_SECRET" default:"change-me-in-production"`
	TokenTTL       time.Duration   `yaml:"token_ttl" envconfig:"TOKEN_TTL" default:"12h"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/fintastic.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// AuthConfig controls account flows.
type AuthConfig struct {
	// AutoLoginOnSignup opens a session immediately after a successful registration.
	AutoLoginOnSignup bool   `yaml:"auto_login_on_signup" envconfig:"AUTO_LOGIN_ON_SIGNUP" default:"false"`
	DefaultRole       string `yaml:"default_role" envconfig:"DEFAULT_ROLE" default:"user"`
}

// BackendConfig selects the account and row persistence backend.
type BackendConfig struct {
	Driver         string        `yaml:"driver" envconfig:"DRIVER" default:"memory"`
	DSN            string        `yaml:"dsn" envconfig:"DSN"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"MAX_CONNS" default:"10"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT" default:"10s"`
}

// SessionConfig selects where per-user session state lives.
type SessionConfig struct {
	Store         string        `yaml:"store" envconfig:"STORE" default:"memory"`
	RedisAddr     string        `yaml:"redis_addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"REDIS_DB" default:"0"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL" default:"12h"`
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" envconfig:"MAX_BYTES" default:"33554432"`
}

// ForecastConfig contains dispatcher defaults.
type ForecastConfig struct {
	DefaultHorizon int `yaml:"default_horizon" envconfig:"DEFAULT_HORIZON" default:"10"`
	MaxHorizon     int `yaml:"max_horizon" envconfig:"MAX_HORIZON" default:"365"`
}

// TelemetryConfig controls tracing and metrics export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"fintastic"`
	ServiceVersion string `yaml:"service_version" envconfig:"SERVICE_VERSION" default:"dev"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
}

// Load loads configuration from environment variables and config file.
// Values present in the YAML file override environment defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.JWTSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}

	switch strings.ToLower(c.Backend.Driver) {
	case "memory":
	case "postgres":
		if c.Backend.DSN == "" {
			return fmt.Errorf("postgres backend requires a dsn")
		}
	default:
		return fmt.Errorf("unknown backend driver: %s", c.Backend.Driver)
	}

	switch strings.ToLower(c.Session.Store) {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session store: %s", c.Session.Store)
	}

	if c.Forecast.DefaultHorizon <= 0 {
		return fmt.Errorf("default forecast horizon must be positive")
	}
	if c.Forecast.MaxHorizon < c.Forecast.DefaultHorizon {
		return fmt.Errorf("max forecast horizon %d is below the default %d", c.Forecast.MaxHorizon, c.Forecast.DefaultHorizon)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	if c.Auth.DefaultRole == "" {
		c.Auth.DefaultRole = "user"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ForecastTimeout: 5 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			JWTSecret:      "change-me-in-production",
			TokenTTL:       12 * time.Hour,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/fintastic.log",
		},
		Auth: AuthConfig{
			DefaultRole: "user",
		},
		Backend: BackendConfig{
			Driver:         "memory",
			MaxConns:       10,
			ConnectTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Store:     "memory",
			RedisAddr: "localhost:6379",
			TTL:       12 * time.Hour,
		},
		Upload: UploadConfig{
			MaxBytes: 32 << 20,
		},
		Forecast: ForecastConfig{
			DefaultHorizon: 10,
			MaxHorizon:     365,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "fintastic",
			ServiceVersion: "dev",
			Environment:    "development",
			MetricsEnabled: true,
		},
	}
}
