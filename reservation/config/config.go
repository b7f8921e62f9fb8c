package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ServerPort          string
	MongoURI            string
	MongoDB             string
	RedisAddr           string
	KafkaBrokers        []string
	KafkaTopic          string
	InventoryURL        string
	InventoryTimeoutSec int
	LokiURL             string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:          getEnv("SERVER_PORT", "3142"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getEnv("MONGO_DB", "shelfmark"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		KafkaBrokers:        splitBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "reservation-events"),
		InventoryURL:        os.Getenv("INVENTORY_URL"),
		InventoryTimeoutSec: getEnvInt("INVENTORY_TIMEOUT_SECONDS", 5),
		LokiURL:             os.Getenv("LOKI_URL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.InventoryTimeoutSec <= 0 {
		return fmt.Errorf("INVENTORY_TIMEOUT_SECONDS must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
