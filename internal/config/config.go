package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends understood by persistence.Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	SQLite       SQLiteConfig
	Logger       LoggerConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
	MQTT         MQTTConfig
	Escalation   EscalationConfig
	Seed         SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig selects where the ticket and notification collections live.
type StorageConfig struct {
	Backend string
	FileDir string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SQLiteConfig holds the database file location.
type SQLiteConfig struct {
	Path string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Output string
}

// NotificationConfig holds addressing and delivery settings.
type NotificationConfig struct {
	SupportAddress string
	ManagerAddress string
	EmailFrom      string
	WebhookURL     string
	SimulatedDelay time.Duration
}

// KafkaConfig enables the Kafka sink when brokers are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MQTTConfig enables the MQTT sink when a broker URL is set.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
}

// EscalationConfig drives the SLA poller.
type EscalationConfig struct {
	Enabled  bool
	Interval time.Duration
}

// SeedConfig controls demo data population on startup. Seeding only
// ever writes to an empty ticket collection.
type SeedConfig struct {
	Demo bool
	File string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile))
	switch backend {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres, BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q", backend)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-tracker"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Backend: backend,
			FileDir: getEnv("STORAGE_FILE_DIR", "./data"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "incident-tracker:"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "./data/incidents.db"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Notification: NotificationConfig{
			SupportAddress: getEnv("NOTIFY_SUPPORT_ADDRESS", "support@company.com"),
			ManagerAddress: getEnv("NOTIFY_MANAGER_ADDRESS", "manager@company.com"),
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@company.com"),
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			SimulatedDelay: getEnvAsDuration("NOTIFY_SIMULATED_DELAY", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_NOTIFICATION_TOPIC", "incident-notifications"),
		},
		MQTT: MQTTConfig{
			BrokerURL: getEnv("MQTT_BROKER", ""),
			ClientID:  getEnv("MQTT_CLIENT_ID", "incident-tracker"),
			Topic:     getEnv("MQTT_NOTIFICATION_TOPIC", "incidents/notifications"),
		},
		Escalation: EscalationConfig{
			Enabled:  getEnvAsBool("ESCALATION_ENABLED", true),
			Interval: getEnvAsDuration("ESCALATION_INTERVAL", time.Minute),
		},
		Seed: SeedConfig{
			Demo: getEnvAsBool("SEED_DEMO_DATA", true),
			File: getEnv("SEED_FILE", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
