package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ridecore/dispatch/pkg/configparser"
)

// Flags
var (
	configPathFlag = flag.String("config", "", "path to a YAML config file (optional)")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		HTTP     HTTPConfig
		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		Redis    RedisConfig
		Auth     Auth
		Webhook  WebhookConfig
		Dispatch DispatchConfig
	}

	HTTPConfig struct {
		Port string `env:"HTTP_PORT" envDefault:"8080"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" envDefault:"localhost"`
		Port     string `env:"DATABASE_PORT" envDefault:"5432"`
		User     string `env:"DATABASE_USER" envDefault:"dispatch_user"`
		Password string `env:"DATABASE_PASSWORD" envDefault:"dispatch_pass"`
		Database string `env:"DATABASE_DATABASE" envDefault:"dispatch_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" envDefault:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" envDefault:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" envDefault:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" envDefault:"5m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" envDefault:"localhost"`
		Port     string `env:"RABBITMQ_PORT" envDefault:"5672"`
		User     string `env:"RABBITMQ_USER" envDefault:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	}

	// RedisConfig backs the spatial index (GeoIndex). InitIndex clears
	// the index at startup (stale positions from a previous run are
	// deleted); drivers re-enter it as they report again.
	RedisConfig struct {
		Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password  string `env:"REDIS_PASSWORD"`
		DB        int    `env:"REDIS_DB" envDefault:"0"`
		InitIndex bool   `env:"REDIS_INIT_INDEX" envDefault:"false"`
	}

	// Auth configures verification of inbound bearer tokens. Token
	// issuance belongs to an identity service out of this core's scope;
	// this service only ever verifies.
	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" envDefault:"supersecretkey"`
	}

	// WebhookConfig is the Ably-style presence webhook credential,
	// `keyName:keySecret`.
	WebhookConfig struct {
		AblyAPIKey string `env:"ABLY_API_KEY" envDefault:"dispatch:devsecret"`
	}

	DispatchConfig struct {
		RoundInterval time.Duration `env:"DISPATCH_ROUND_INTERVAL" envDefault:"20s"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// KeyName and KeySecret split "keyName:keySecret".
func (c WebhookConfig) KeyName() string {
	name, _, _ := strings.Cut(c.AblyAPIKey, ":")
	return name
}

func (c WebhookConfig) KeySecret() string {
	_, secret, _ := strings.Cut(c.AblyAPIKey, ":")
	return secret
}

func NewConfig() (*Config, error) {
	flag.Parse()

	cfg := &Config{}
	if err := configparser.LoadAndParseYaml(*configPathFlag, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
