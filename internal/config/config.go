package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DSN           string
	HTTPPort      string
	Username      string
	Password      string
	MigrationsDir string
	UnitPrice     float64
	KafkaBrokers  []string
	KafkaGroupID  string
	KafkaTopic    string
}

func LoadConfig() *Config {
	brokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	return &Config{
		DSN:           getEnv("APP_DSN", "host=localhost user=postgres password=postgres dbname=cylinders sslmode=disable"),
		HTTPPort:      getEnv("APP_PORT", "9000"),
		Username:      getEnv("APP_USER", "operator"),
		Password:      getEnv("APP_PASS", "secret"),
		MigrationsDir: getEnv("APP_MIGRATIONS", "migrations"),
		UnitPrice:     getEnvFloat("APP_UNIT_PRICE", 1200),
		KafkaBrokers:  strings.Split(brokersStr, ","),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "notification-group"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "order-notifications"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}
