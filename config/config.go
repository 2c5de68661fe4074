package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the report service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Database pool configuration
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int
	DBPingMaxWaitSec     int

	// Server configuration
	Port string

	// Admin claim verification
	AdminJWTSecret string
	AdminJWTIssuer string

	// RabbitMQ configuration
	AMQPHost               string
	AMQPPort               string
	AMQPUser               string
	AMQPPassword           string
	RabbitExchange         string
	RabbitStatusRoutingKey string

	// Submission limits
	MaxImageBytes       int64
	SubmitRatePerMinute float64
	SubmitBurst         int
	ImageFetchTimeout   time.Duration
	PlaceholderImageURL string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from a .env file, if any, and environment variables
func Load() *Config {
	// Variables already set in the environment win over .env.
	_ = godotenv.Load()

	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "safaisetu"),

		DBMaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetimeMin: getIntEnv("DB_CONN_MAX_LIFETIME_MIN", 5),
		DBPingMaxWaitSec:     getIntEnv("DB_PING_MAX_WAIT_SEC", 60),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminJWTIssuer: getEnv("ADMIN_JWT_ISSUER", ""),

		// RabbitMQ defaults
		AMQPHost:               getEnv("AMQP_HOST", "localhost"),
		AMQPPort:               getEnv("AMQP_PORT", "5672"),
		AMQPUser:               getEnv("AMQP_USER", "guest"),
		AMQPPassword:           getEnv("AMQP_PASSWORD", "guest"),
		RabbitExchange:         getEnv("RABBITMQ_EXCHANGE", "safaisetu"),
		RabbitStatusRoutingKey: getEnv("RABBITMQ_STATUS_ROUTING_KEY", "report.status"),

		MaxImageBytes:       int64(getIntEnv("MAX_IMAGE_BYTES", 10<<20)),
		SubmitRatePerMinute: getFloatEnv("SUBMIT_RATE_PER_MINUTE", 30),
		SubmitBurst:         getIntEnv("SUBMIT_BURST", 5),
		ImageFetchTimeout:   getDurationEnv("IMAGE_FETCH_TIMEOUT", 10*time.Second),
		PlaceholderImageURL: getEnv("PLACEHOLDER_IMAGE_URL", "/static/placeholder.png"),

		// Logging defaults
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return config
}

// AMQPURL returns the broker url assembled from the AMQP_* settings
func (c *Config) AMQPURL() string {
	return "amqp://" + c.AMQPUser + ":" + c.AMQPPassword + "@" + c.AMQPHost + ":" + c.AMQPPort
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
