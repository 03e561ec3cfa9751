package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"livechat/pkg/logger"
)

type ClientConfig struct {
	API      APIConfig
	Polling  PollingConfig
	StateDir string
	Stream   bool
	Log      LogConfig
}

type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type PollingConfig struct {
	Presence time.Duration
	Rooms    time.Duration
	Messages time.Duration
}

type ServerConfig struct {
	Server   HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Chat     ChatConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret    []byte
	ExpiresIn time.Duration
}

type ChatConfig struct {
	PresenceTTL      time.Duration
	MaxMessageLength int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// LoadClient reads the chat client configuration from the environment,
// after loading a .env file if one is present.
func LoadClient() *ClientConfig {
	loadDotEnv()

	return &ClientConfig{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnvOrDefault("CHAT_API_URL", "http://localhost:8080"), "/"),
			Token:   os.Getenv("CHAT_TOKEN"),
			Timeout: getDurationOrDefault("CHAT_HTTP_TIMEOUT", "10s"),
		},
		Polling: PollingConfig{
			Presence: getDurationOrDefault("CHAT_PRESENCE_INTERVAL", "5s"),
			Rooms:    getDurationOrDefault("CHAT_ROOMS_INTERVAL", "10s"),
			Messages: getDurationOrDefault("CHAT_MESSAGES_INTERVAL", "3s"),
		},
		StateDir: getEnvOrDefault("CHAT_STATE_DIR", ".chatstate"),
		Stream:   getBoolOrDefault("CHAT_STREAM_ENABLED", false),
		Log:      loadLog(),
	}
}

// LoadServer reads the reference chat API configuration. JWT_SECRET is
// required; the process exits when it is missing.
func LoadServer() *ServerConfig {
	loadDotEnv()

	return &ServerConfig{
		Server: HTTPConfig{
			Port:            getEnvOrDefault("PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout:    getDurationOrDefault("WRITE_TIMEOUT", "15s"),
			ShutdownTimeout: getDurationOrDefault("SHUTDOWN_TIMEOUT", "10s"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:    []byte(getEnvOrFatal("JWT_SECRET")),
			ExpiresIn: getDurationOrDefault("JWT_EXPIRES_IN", "24h"),
		},
		Chat: ChatConfig{
			PresenceTTL:      getDurationOrDefault("PRESENCE_TTL", "60s"),
			MaxMessageLength: getIntOrDefault("MAX_MESSAGE_LENGTH", 500),
		},
		Log: loadLog(),
	}
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded: %v", err)
	}
}

func loadLog() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Pretty: getBoolOrDefault("LOG_PRETTY", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrFatal(key string) string {
	value := os.Getenv(key)
	if value == "" {
		logger.Fatal("%s environment variable is required", key)
	}
	return value
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		logger.Warn("Invalid duration for %s=%q, using %s", key, value, defaultValue)
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("Invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("Invalid boolean for %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}
