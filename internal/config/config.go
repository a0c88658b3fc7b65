package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort           string
	GRPCHealthPort     string
	PublicBaseURL      string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string
	AssetsDir          string

	PaystackSecretKey string
	PaystackBaseURL   string

	SendGridAPIKey  string
	SendGridBaseURL string
	NotifyFrom      string
	NotifyTo        string
	NotifyWorkers   int
	NotifyQueueSize int

	RedisAddr     string
	RedisPassword string
	SessionSecret string

	KafkaBrokers []string
	KafkaTopic   string

	WebhookDedupe    bool
	WebhookDedupeTTL time.Duration
}

// EmailConfigured reports whether every setting needed to send order emails is present.
func (c *Config) EmailConfigured() bool {
	return c.SendGridAPIKey != "" && c.NotifyFrom != "" && c.NotifyTo != ""
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCHealthPort:     getEnv("GRPC_HEALTH_PORT", ""),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(getInt("MAX_REQUEST_BODY", 1<<20)), // 1MB
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AssetsDir:          getEnv("ASSETS_DIR", "assets"),

		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:   strings.TrimRight(getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"), "/"),

		SendGridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		SendGridBaseURL: strings.TrimRight(getEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com"), "/"),
		NotifyFrom:      os.Getenv("ORDER_NOTIFY_FROM"),
		NotifyTo:        os.Getenv("ORDER_NOTIFY_TO"),
		NotifyWorkers:   getInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize: getInt("NOTIFY_QUEUE", 64),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionSecret: getEnv("SESSION_SECRET", ""),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "orders-paid"),

		WebhookDedupe:    getBool("WEBHOOK_DEDUPE", false),
		WebhookDedupeTTL: getDuration("WEBHOOK_DEDUPE_TTL", 72*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, raw, defaultValue)
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
