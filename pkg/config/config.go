package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // A missing .env file is fine, env vars may already be set

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return nil
}

// Config holds the configuration for the matching engine service.
type Config struct {
	Pair     string `env:"PAIR,required"` // Trading pair, e.g., BTC-USD
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"` // Ops listener (health endpoint)

	KafkaConfig          `envPrefix:"KAFKA_"` // Order feed configuration
	MatchPublisherConfig `envPrefix:"MATCH_"` // Fill topic configuration
	RedisConfig          `envPrefix:"REDIS_"` // Snapshot store configuration
}

// KafkaConfig holds the configuration for the order feed consumer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC" envDefault:"orders"`
	GroupID string   `env:"GROUP_ID" envDefault:"matching-engine"`
	Brokers []string `env:"BROKER,required"`
}

// MatchPublisherConfig holds the configuration for the fill event producer.
type MatchPublisherConfig struct {
	Topic   string   `env:"TOPIC" envDefault:"matches"`
	Brokers []string `env:"BROKER,required"`
}

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addrs    string `env:"ADDRESS" envDefault:"localhost:6379"` // Comma-separated list of Redis addresses
	Password string `env:"PASSWORD" envDefault:""`
	Username string `env:"USERNAME" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}
