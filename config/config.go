package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"web/rentmap/logger"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPAddr   string
	GRPCPort   int
	RunnerAddr string

	MaxSessions        int
	SessionIdleTimeout time.Duration
	TransitionDuration time.Duration
	ClusterStrategy    string

	SnapshotBackend string
	SnapshotDir     string
	SnapshotTTL     time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	PinSource string
	PinFile   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	LogLevel  string
	LogFormat string
}

// Load reads the .env file if present and returns a populated Config.
func Load() *Config {
	return LoadFile()
}

// LoadFile is Load with explicit dotenv paths. Variables already set in the
// environment win over the files.
func LoadFile(paths ...string) *Config {
	if err := godotenv.Load(paths...); err != nil {
		logger.L().Debug("config_no_dotenv", "fallback", "environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8000"),
		GRPCPort:   getEnvInt("GRPC_PORT", 50051),
		RunnerAddr: getEnv("RUNNER_ADDR", "localhost:50051"),

		MaxSessions:        getEnvInt("MAX_SESSIONS", 64),
		SessionIdleTimeout: time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 30)) * time.Minute,
		TransitionDuration: time.Duration(getEnvInt("TRANSITION_MS", 400)) * time.Millisecond,
		ClusterStrategy:    getEnv("CLUSTER_STRATEGY", "greedy"),

		SnapshotBackend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", "file")),
		SnapshotDir:     getEnv("SNAPSHOT_DIR", "data/sessions"),
		SnapshotTTL:     time.Duration(getEnvInt("SNAPSHOT_TTL_HOURS", 24)) * time.Hour,
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		PinSource: strings.ToLower(getEnv("PIN_SOURCE", "sample")),
		PinFile:   getEnv("PIN_FILE", "data/pins.json"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "rentmap"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		logger.L().Warn("config_bad_int", "key", key, "value", val)
	}
	return fallback
}
