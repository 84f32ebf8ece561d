package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	App   AppConfig
	HTTP  HTTPConfig
	Store StoreConfig
	Mongo MongoConfig
	Redis RedisConfig
	Kafka KafkaConfig
}

// Load reads the configuration from the environment. Callers load an
// optional .env file beforehand.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("STOREFRONT_MONGO_URI is required for the mongo store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Mongo.MinPoolSize > c.Mongo.MaxPoolSize {
		return fmt.Errorf("mongo min pool size %d exceeds max %d", c.Mongo.MinPoolSize, c.Mongo.MaxPoolSize)
	}
	return nil
}

type AppConfig struct {
	Name      string `envconfig:"STOREFRONT_APP_NAME" default:"storefront"`
	LogLevel  string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
}

type HTTPConfig struct {
	Port            string        `envconfig:"STOREFRONT_HTTP_PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"STOREFRONT_HTTP_REQUEST_TIMEOUT" default:"10s"`
	ReadTimeout     time.Duration `envconfig:"STOREFRONT_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"STOREFRONT_HTTP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"STOREFRONT_HTTP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_HTTP_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"STOREFRONT_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type StoreConfig struct {
	Driver string `envconfig:"STOREFRONT_STORE_DRIVER" default:"mongo"`
}

type MongoConfig struct {
	URI              string        `envconfig:"STOREFRONT_MONGO_URI" default:"mongodb://localhost:27017"`
	Database         string        `envconfig:"STOREFRONT_MONGO_DATABASE" default:"storefront"`
	MaxPoolSize      uint64        `envconfig:"STOREFRONT_MONGO_MAX_POOL_SIZE" default:"100"`
	MinPoolSize      uint64        `envconfig:"STOREFRONT_MONGO_MIN_POOL_SIZE" default:"10"`
	ConnectTimeout   time.Duration `envconfig:"STOREFRONT_MONGO_CONNECT_TIMEOUT" default:"10s"`
	OperationTimeout time.Duration `envconfig:"STOREFRONT_MONGO_OPERATION_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	Address         string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password        string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB              int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	CacheTTL        time.Duration `envconfig:"STOREFRONT_REDIS_CACHE_TTL" default:"15m"`
	BreakerFailures uint32        `envconfig:"STOREFRONT_REDIS_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"STOREFRONT_REDIS_BREAKER_COOLDOWN" default:"30s"`
}

// Enabled reports whether a Redis cache should be used.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Address) != ""
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"STOREFRONT_KAFKA_BROKERS"`
	Topic        string        `envconfig:"STOREFRONT_KAFKA_TOPIC" default:"storefront.order-events"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_KAFKA_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether order events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}
