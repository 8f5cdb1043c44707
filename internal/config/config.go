// internal/config/config.go

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Membit      MembitConfig
	Flowise     FlowiseConfig
	Breaker     BreakerConfig
	Snapshot    SnapshotConfig
	NATS        NATSConfig
	Feed        FeedConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
	PingMessage     string
}

// MembitConfig holds the social-analytics provider configuration.
// An empty APIKey disables the direct REST and search endpoints, an empty
// MCPURL disables the consolidated aggregation endpoint.
type MembitConfig struct {
	APIKey     string
	BaseURL    string
	MCPURL     string
	Timeout    time.Duration
	TrendLimit int
	MockCount  int
}

// FlowiseConfig holds the chat provider configuration
type FlowiseConfig struct {
	URL        string
	APIKey     string
	ChatflowID string
	Timeout    time.Duration
}

// BreakerConfig holds circuit breaker settings shared by all upstream clients
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// SnapshotConfig holds configuration for the last-good trends snapshot
type SnapshotConfig struct {
	RedisURL string
	Key      string
	TTL      time.Duration
}

// NATSConfig holds NATS configuration. Events are disabled when URL is empty.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	SubjectPrefix  string
}

// FeedConfig holds the live trend feed configuration
type FeedConfig struct {
	Enabled  bool
	Interval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", getEnvAsInt("PORT", 8080)),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
			PingMessage:     getEnv("PING_MESSAGE", "ping"),
		},
		Membit: MembitConfig{
			APIKey:     getEnv("MEMBIT_API_KEY", ""),
			BaseURL:    strings.TrimRight(getEnv("MEMBIT_API_BASE", "https://api.membit.ai/v1"), "/"),
			MCPURL:     getEnv("MEMBIT_MCP_URL", ""),
			Timeout:    getEnvAsDuration("MEMBIT_TIMEOUT", 10*time.Second),
			TrendLimit: getEnvAsInt("MEMBIT_TREND_LIMIT", 12),
			MockCount:  getEnvAsInt("TRENDS_MOCK_COUNT", 12),
		},
		Flowise: FlowiseConfig{
			URL:        getEnv("FLOWISE_API_URL", ""),
			APIKey:     getEnv("FLOWISE_API_KEY", ""),
			ChatflowID: getEnv("FLOWISE_CHATFLOW_ID", ""),
			Timeout:    getEnvAsDuration("FLOWISE_TIMEOUT", 15*time.Second),
		},
		Breaker: BreakerConfig{
			MaxFailures: uint32(getEnvAsInt("BREAKER_MAX_FAILURES", 5)),
			OpenTimeout: getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Snapshot: SnapshotConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			Key:      getEnv("SNAPSHOT_KEY", "membitpulse:trends:last"),
			TTL:      getEnvAsDuration("SNAPSHOT_TTL", 10*time.Minute),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			SubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "pulse"),
		},
		Feed: FeedConfig{
			Enabled:  getEnvAsBool("FEED_ENABLED", true),
			Interval: getEnvAsDuration("FEED_INTERVAL", 60*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}
	if config.Membit.MockCount <= 0 {
		return fmt.Errorf("TRENDS_MOCK_COUNT must be positive, got %d", config.Membit.MockCount)
	}
	if config.Feed.Enabled && config.Feed.Interval < time.Second {
		return fmt.Errorf("FEED_INTERVAL must be at least 1s, got %s", config.Feed.Interval)
	}
	return nil
}

// LogValue reports which integrations are configured without exposing secrets.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Environment),
		slog.Bool("membit_key", c.Membit.APIKey != ""),
		slog.Bool("membit_mcp", c.Membit.MCPURL != ""),
		slog.Bool("flowise_url", c.Flowise.URL != ""),
		slog.Bool("flowise_key", c.Flowise.APIKey != ""),
		slog.Bool("flowise_chatflow", c.Flowise.ChatflowID != ""),
		slog.Bool("redis", c.Snapshot.RedisURL != ""),
		slog.Bool("nats", c.NATS.URL != ""),
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
