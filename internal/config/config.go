package config

import (
	"fmt"
	"os"
)

// Config holds everything the service reads from the environment: postgres,
// kafka and rabbitmq coordinates plus the Paystack credentials. Infrastructure
// fields mirror their env var names.
type Config struct {
	// Database (PostgreSQL) config
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string
	DB_HOST     string
	DB_PORT     string
	// Kafka config
	KAFKA_TOPIC  string
	KAFKA_BROKER string
	// RabbitMQ config
	RABBITMQ_USER     string
	RABBITMQ_PASSWORD string
	RABBITMQ_HOST     string
	RABBITMQ_PORT     string

	// PaystackSecretKey signs outbound API calls and verifies inbound
	// webhook signatures. Required.
	PaystackSecretKey string
	// PaystackBaseURL is overridable for tests and sandboxes.
	PaystackBaseURL string

	// HTTPAddr is the listen address of the webhook server.
	HTTPAddr string

	// CallbackURL is where the provider redirects buyers after checkout,
	// normally this service's thank-you page. Empty falls back to the
	// dashboard default.
	CallbackURL string

	// SMTP settings for the mail worker. When SMTP_ADDR is empty the worker
	// logs deliveries instead of sending them.
	SMTPAddr string
	SMTPFrom string
}

// LoadConfig reads the full service configuration from the environment.
func LoadConfig() (*Config, error) {
	secret := os.Getenv("PAYSTACK_SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY is required")
	}

	cfg := &Config{
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),

		KAFKA_TOPIC:  os.Getenv("KAFKA_TOPIC"),
		KAFKA_BROKER: os.Getenv("KAFKA_BROKER"),

		RABBITMQ_USER:     os.Getenv("RABBITMQ_USER"),
		RABBITMQ_PASSWORD: os.Getenv("RABBITMQ_PASSWORD"),
		RABBITMQ_HOST:     os.Getenv("RABBITMQ_HOST"),
		RABBITMQ_PORT:     os.Getenv("RABBITMQ_PORT"),

		PaystackSecretKey: secret,
		PaystackBaseURL:   os.Getenv("PAYSTACK_BASE_URL"),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		CallbackURL:       os.Getenv("CALLBACK_URL"),
		SMTPAddr:          os.Getenv("SMTP_ADDR"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
	}

	if cfg.PaystackBaseURL == "" {
		cfg.PaystackBaseURL = "https://api.paystack.co"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// GetDBURL formats the config into a PostgreSQL connection string.
func (c *Config) GetDBURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME)
}

// GetRabbitMQURL formats the config into a RabbitMQ connection string.
// Missing host/port fall back to the standard local defaults.
func (c *Config) GetRabbitMQURL() string {
	host := c.RABBITMQ_HOST
	if host == "" {
		host = "localhost"
	}
	port := c.RABBITMQ_PORT
	if port == "" {
		port = "5672"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RABBITMQ_USER, c.RABBITMQ_PASSWORD, host, port)
}

// GetKafkaBroker returns the broker address, defaulting to a local broker.
func (c *Config) GetKafkaBroker() string {
	if c.KAFKA_BROKER == "" {
		return "localhost:9092"
	}
	return c.KAFKA_BROKER
}

// GetKafkaTopic returns the payment events topic name.
func (c *Config) GetKafkaTopic() string {
	if c.KAFKA_TOPIC == "" {
		return "payment.confirmed"
	}
	return c.KAFKA_TOPIC
}
