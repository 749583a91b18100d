package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	HTTP        ServerConfig
	MySQL       MySQLConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	MercadoPago MercadoPagoConfig
	Billing     BillingConfig
	Jobs        JobsConfig
	Log         LogConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	RequestTopic  string
	SuccessTopic  string
	FailureTopic  string
	ConsumerGroup string
}

// RedisConfig backs the consumer-side seen-message store. An empty Addr
// disables it; the database uniqueness constraint still guards correctness.
type RedisConfig struct {
	Addr    string
	SeenTTL time.Duration
}

type MercadoPagoConfig struct {
	AccessToken string
	BaseURL     string
	HTTPTimeout time.Duration
}

type BillingConfig struct {
	NotifyOnFailure     bool
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval time.Duration
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	if kafkaBrokers == "" {
		return nil, errors.New("KAFKA_BROKERS environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billing-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       splitAndTrim(kafkaBrokers),
			RequestTopic:  getEnv("KAFKA_PAYMENT_REQUEST_TOPIC", "payment-requests"),
			SuccessTopic:  getEnv("KAFKA_PAYMENT_SUCCESS_TOPIC", "payment-success"),
			FailureTopic:  getEnv("KAFKA_PAYMENT_FAILURE_TOPIC", "payment-failure"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "billing-service"),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", ""),
			SeenTTL: getMinutesEnv("REDIS_SEEN_TTL_MINUTES", 24*time.Hour),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken: getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
			BaseURL:     getEnv("MERCADOPAGO_BASE_URL", ""),
			HTTPTimeout: getSecondsEnv("MERCADOPAGO_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Billing: BillingConfig{
			NotifyOnFailure:     getBoolEnv("BILLING_NOTIFY_ON_FAILURE", false),
			ReconcileStaleAfter: getMinutesEnv("BILLING_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("BILLING_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("BILLING_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
