package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Log backend selectors.
const (
	LogBackendMemory   = "memory"
	LogBackendPostgres = "postgres"
)

// Chat provider selectors.
const (
	ChatProviderGroq   = "groq"
	ChatProviderOllama = "ollama"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logs        LogsConfig
	RateLimit   RateLimitConfig
	Chat        ChatConfig
	Identity    IdentityConfig
	Environment string
	LogLevel    string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// LogsConfig selects and tunes the auth event log backend.
type LogsConfig struct {
	Backend        string // memory or postgres
	MemoryCapacity int
	RetentionDays  int
	SweepInterval  time.Duration
}

// RateLimitConfig holds the per-bucket admission limits.
type RateLimitConfig struct {
	ChatLimit     int
	ChatWindow    time.Duration
	TrackLimit    int
	TrackWindow   time.Duration
	FailClosed    bool
	SweepInterval time.Duration
}

// ChatConfig holds completion provider configuration.
type ChatConfig struct {
	Provider     string // groq or ollama
	GroqAPIKey   string
	GroqBaseURL  string
	GroqModel    string
	OllamaURL    string
	OllamaModel  string
	SystemPrompt string
	Timeout      time.Duration
	MaxRetries   int
}

// IdentityConfig holds the delegated identity provider settings.
type IdentityConfig struct {
	SessionSecret string
	Issuer        string
	WebhookSecret string
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env if present; real environment always wins.
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Logs: LogsConfig{
			Backend:        getEnv("LOG_BACKEND", LogBackendMemory),
			MemoryCapacity: getEnvAsInt("LOG_MEMORY_CAPACITY", 500),
			RetentionDays:  getEnvAsInt("LOG_RETENTION_DAYS", 30),
			SweepInterval:  getEnvAsDuration("LOG_SWEEP_INTERVAL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			ChatLimit:     getEnvAsInt("RATE_LIMIT_CHAT", 10),
			ChatWindow:    getEnvAsDuration("RATE_LIMIT_CHAT_WINDOW", time.Minute),
			TrackLimit:    getEnvAsInt("RATE_LIMIT_TRACK", 30),
			TrackWindow:   getEnvAsDuration("RATE_LIMIT_TRACK_WINDOW", time.Minute),
			FailClosed:    getEnvAsBool("RATE_LIMIT_FAIL_CLOSED", false),
			SweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
		Chat: ChatConfig{
			Provider:     getEnv("CHAT_PROVIDER", ChatProviderOllama),
			GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
			GroqBaseURL:  getEnv("GROQ_BASE_URL", ""),
			GroqModel:    getEnv("GROQ_MODEL", ""),
			OllamaURL:    getEnv("OLLAMA_URL", ""),
			OllamaModel:  getEnv("OLLAMA_MODEL", ""),
			SystemPrompt: getEnv("CHAT_SYSTEM_PROMPT", ""),
			Timeout:      getEnvAsDuration("CHAT_TIMEOUT", 60*time.Second),
			MaxRetries:   getEnvAsInt("CHAT_MAX_RETRIES", 2),
		},
		Identity: IdentityConfig{
			SessionSecret: getEnv("SESSION_JWT_SECRET", ""),
			Issuer:        getEnv("SESSION_ISSUER", ""),
			WebhookSecret: getEnv("IDENTITY_WEBHOOK_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Logs.Backend {
	case LogBackendMemory, LogBackendPostgres:
	default:
		return fmt.Errorf("unknown log backend %q", c.Logs.Backend)
	}

	if c.Logs.Backend == LogBackendPostgres {
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("postgres log backend requires DATABASE_URL or DB_HOST")
		}
	}

	switch c.Chat.Provider {
	case ChatProviderGroq:
		if c.Chat.GroqAPIKey == "" {
			return fmt.Errorf("groq chat provider requires GROQ_API_KEY")
		}
	case ChatProviderOllama:
	default:
		return fmt.Errorf("unknown chat provider %q", c.Chat.Provider)
	}

	if c.IsProduction() {
		if c.Identity.SessionSecret == "" {
			return fmt.Errorf("SESSION_JWT_SECRET is required in production")
		}
		if c.Identity.WebhookSecret == "" {
			return fmt.Errorf("IDENTITY_WEBHOOK_SECRET is required in production")
		}
	}

	if c.RateLimit.ChatLimit <= 0 || c.RateLimit.TrackLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", ""),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "portfolio"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "portfolio"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
