package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultPort       = 3000
	DefaultKafkaTopic = "pullfunds-events"
)

type Config struct {
	DbURL           string
	RpcURL          string
	PrivateKey      string
	ContractAddress string
	Port            int
	KafkaBroker     string
	KafkaTopic      string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return &Config{
		DbURL:           os.Getenv("DB_URL"),
		RpcURL:          os.Getenv("RPC_URL"),
		PrivateKey:      os.Getenv("PRIVATE_KEY"),
		ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
		Port:            getEnvInt("PORT", DefaultPort),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", DefaultKafkaTopic),
	}, nil
}

// Missing returns the names of required variables that are not set. The
// service still starts without them; the dependent resource stays down.
func (c *Config) Missing() []string {
	required := []struct {
		key   string
		value string
	}{
		{"DB_URL", c.DbURL},
		{"RPC_URL", c.RpcURL},
		{"PRIVATE_KEY", c.PrivateKey},
		{"CONTRACT_ADDRESS", c.ContractAddress},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	return missing
}

// EventsEnabled reports whether domain events should be relayed to Kafka
func (c *Config) EventsEnabled() bool {
	return c.KafkaBroker != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
