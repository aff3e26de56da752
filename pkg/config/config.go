package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides (e.g. GAMEAPI_SERVER_PORT).
const EnvPrefix = "GAMEAPI"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Admission AdmissionConfig `yaml:"admission" envconfig:"ADMISSION"`
	Execution ExecutionConfig `yaml:"execution" envconfig:"EXECUTION"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	CORS      CORSConfig      `yaml:"cors" envconfig:"CORS"`
	Metrics   MetricsConfig   `yaml:"metrics" envconfig:"METRICS"`
	Canvas    CanvasConfig    `yaml:"canvas" envconfig:"CANVAS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"` // budget for a graceful stop
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`     // cap on an API request body
}

// AdmissionConfig configures per-address connection throttling.
type AdmissionConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	// Window is the maximum gap between two attempts that still counts as the same burst.
	Window time.Duration `yaml:"window" envconfig:"WINDOW"`
	// MaxAttempts is the number of connections admitted within one burst.
	MaxAttempts int `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	// RejectWriteTimeout bounds the write of the 429 status line to a rejected socket.
	RejectWriteTimeout time.Duration `yaml:"reject_write_timeout" envconfig:"REJECT_WRITE_TIMEOUT"`
}

// ExecutionConfig configures handler invocation.
type ExecutionConfig struct {
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// CORSConfig contains CORS settings for the browser client.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods" envconfig:"ALLOWED_METHODS"`
	AllowedHeaders   []string `yaml:"allowed_headers" envconfig:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `yaml:"exposed_headers" envconfig:"EXPOSED_HEADERS"`
	AllowCredentials bool     `yaml:"allow_credentials" envconfig:"ALLOW_CREDENTIALS"`
	MaxAge           int      `yaml:"max_age" envconfig:"MAX_AGE"` // seconds
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Path    string `yaml:"path" envconfig:"ENDPOINT"` // GAMEAPI_METRICS_ENDPOINT
}

// CanvasConfig holds values rendered into the game canvas page.
type CanvasConfig struct {
	Name string `yaml:"name" envconfig:"NAME"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// A local .env file feeds the environment but never overrides variables
	// that are already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the reference values: port 25565, a 3 second
// admission window of 100 attempts, a 20 second handler timeout and a 10
// second shutdown budget.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            25565,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Admission: AdmissionConfig{
			Enabled:            true,
			Window:             3 * time.Second,
			MaxAttempts:        100,
			RejectWriteTimeout: time.Second,
		},
		Execution: ExecutionConfig{
			Timeout: 20 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         12 * 60 * 60,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Canvas: CanvasConfig{
			Name: "leoska",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}

	if c.Admission.Enabled {
		if c.Admission.Window <= 0 {
			return fmt.Errorf("admission window must be positive")
		}
		if c.Admission.MaxAttempts < 1 {
			return fmt.Errorf("admission max_attempts must be at least 1, got %d", c.Admission.MaxAttempts)
		}
	}

	if c.Execution.Timeout <= 0 {
		return fmt.Errorf("execution timeout must be positive")
	}

	// A zero write timeout means none.
	if c.Server.WriteTimeout > 0 && c.Execution.Timeout >= c.Server.WriteTimeout {
		return fmt.Errorf("execution timeout (%s) must be shorter than server write_timeout (%s)",
			c.Execution.Timeout, c.Server.WriteTimeout)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics path is required when metrics are enabled")
	}

	return nil
}

// Address returns the server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
