// Package config provides configuration management for the Pub/Sub broker.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration options for the Pub/Sub broker.
type Config struct {
	// Server configuration
	Port   string
	Host   string
	WSPath string

	// Topic configuration
	RingBufferSize      int
	SubscriberQueueSize int

	// Heartbeat configuration
	HeartbeatInterval time.Duration

	// Timeout configuration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	// Logging configuration
	LogLevel string
	LogJSON  bool
}

// NewConfig creates a new configuration populated with environment
// overrides of the documented defaults (ring buffer 100, subscriber
// queue 512, heartbeat 30s, port 4000). CLI flags, bound in
// internals/cli, take precedence over these once parsed.
func NewConfig() *Config {
	return &Config{
		Port:                getEnv("PORT", "4000"),
		Host:                getEnv("HOST", "0.0.0.0"),
		WSPath:              getEnv("WS_PATH", "/ws"),
		RingBufferSize:      getEnvAsInt("RING_BUFFER_SIZE", 100),
		SubscriberQueueSize: getEnvAsInt("SUBSCRIBER_QUEUE_SIZE", 512),
		HeartbeatInterval:   getEnvAsDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		WriteTimeout:        getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		ReadTimeout:         getEnvAsDuration("READ_TIMEOUT", 60*time.Second),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogJSON:             getEnvAsBool("LOG_JSON", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
