package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	// InMemory swaps Mongo and Redis for process-local adapters.
	InMemory bool `env:"IN_MEMORY, default=false"`

	HTTP     HTTPConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Store    StoreConfig
	Checkout CheckoutConfig
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,     default=10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,    default=15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT, default=15s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=parcabul"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// StoreConfig tunes the session stores and their snapshot writer.
type StoreConfig struct {
	KeyPrefix     string        `env:"STORE_KEY_PREFIX,     default=724parcabul-store"`
	SnapshotTTL   time.Duration `env:"STORE_SNAPSHOT_TTL,   default=720h"`
	WriterWorkers int           `env:"STORE_WRITER_WORKERS, default=4"`
	IdleEvict     time.Duration `env:"STORE_IDLE_EVICT,     default=30m"`
	SweepInterval time.Duration `env:"STORE_SWEEP_INTERVAL, default=5m"`
}

type CheckoutConfig struct {
	FreeShippingThreshold decimal.Decimal `env:"FREE_SHIPPING_THRESHOLD,  default=500"`
	ShippingFee           decimal.Decimal `env:"SHIPPING_FEE,             default=29.99"`
	IdempotencyTTL        time.Duration   `env:"CHECKOUT_IDEMPOTENCY_TTL, default=24h"`
}

// IsDevelopment reports whether ENV selects developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == "local"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// MustLoad is Load for main: it panics on a bad environment.
func MustLoad() *Config {
	cfg, err := Load(context.Background())
	if err != nil {
		panic(err)
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.Store.WriterWorkers < 1 {
		return fmt.Errorf("STORE_WRITER_WORKERS must be at least 1, got %d", c.Store.WriterWorkers)
	}
	if c.Store.SweepInterval <= 0 {
		return fmt.Errorf("STORE_SWEEP_INTERVAL must be positive, got %s", c.Store.SweepInterval)
	}
	if c.Checkout.ShippingFee.IsNegative() || c.Checkout.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("checkout amounts must not be negative")
	}
	return nil
}
