package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	Log      LogConfig
	Store    StoreConfig
	Sweep    SweepConfig
	Artifact ArtifactConfig
	External ExternalConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"voucher_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// RedisConfig holds the snapshot cache configuration. The cache is optional:
// when disabled (or unreachable at startup) the service reads straight from
// the database.
type RedisConfig struct {
	Enabled    bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Host       string `envconfig:"REDIS_HOST" default:"localhost"`
	Port       int    `envconfig:"REDIS_PORT" default:"6379"`
	Password   string `envconfig:"REDIS_PASSWORD" default:""`
	DB         int    `envconfig:"REDIS_DB" default:"0"`
	TTLSeconds int    `envconfig:"REDIS_TTL_SECONDS" default:"300"`
}

// Addr returns the host:port address of the Redis server.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// StoreConfig holds store-level fallbacks used at issuance time.
type StoreConfig struct {
	Currency string `envconfig:"STORE_CURRENCY" default:"USD"`
	Country  string `envconfig:"STORE_COUNTRY" default:"US"`
	State    string `envconfig:"STORE_STATE" default:""`
	Postcode string `envconfig:"STORE_POSTCODE" default:""`
	City     string `envconfig:"STORE_CITY" default:""`
}

// SweepConfig holds expiry sweep configuration.
type SweepConfig struct {
	IntervalSeconds int `envconfig:"SWEEP_INTERVAL_SECONDS" default:"3600"`
}

// ArtifactConfig holds artifact rendering trigger configuration.
type ArtifactConfig struct {
	QueueSize      int `envconfig:"ARTIFACT_QUEUE_SIZE" default:"128"`
	TimeoutSeconds int `envconfig:"ARTIFACT_TIMEOUT_SECONDS" default:"60"`
}

// ExternalConfig holds base URLs for the external collaborators.
type ExternalConfig struct {
	CatalogURL     string `envconfig:"CATALOG_URL" default:"http://localhost:8081"`
	TaxURL         string `envconfig:"TAX_URL" default:"http://localhost:8082"`
	OrdersURL      string `envconfig:"ORDERS_URL" default:"http://localhost:8083"`
	CustomersURL   string `envconfig:"CUSTOMERS_URL" default:"http://localhost:8084"`
	RendererURL    string `envconfig:"RENDERER_URL" default:"http://localhost:8085"`
	TimeoutSeconds int    `envconfig:"EXTERNAL_TIMEOUT_SECONDS" default:"10"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
