package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// MinJWTSecretLength is the shortest HS256 secret accepted at startup.
const MinJWTSecretLength = 32

type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`

	StoreConfig

	JWT       JWTConfig
	RateLimit RateLimitConfig

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	CORSEnabled          bool     `env:"CORS_ENABLED" envDefault:"true"`
	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`

	MetricsEnabled     bool `env:"METRICS_ENABLED" envDefault:"true"`
	SeedDemoIdentities bool `env:"SEED_DEMO_IDENTITIES" envDefault:"false"`
}

// StoreConfig is the part of the configuration the offline tools
// (seed, create_admin) need: where identities live and how to hash.
type StoreConfig struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	BoltPath     string `env:"BOLT_PATH" envDefault:"gatekeeper.db"`
	BcryptCost   int    `env:"BCRYPT_COST" envDefault:"10"`
}

type JWTConfig struct {
	Secret          string        `env:"JWT_SECRET"`
	Issuer          string        `env:"JWT_ISSUER" envDefault:"gatekeeper"`
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TOKEN_TTL" envDefault:"168h"`
	Leeway          time.Duration `env:"JWT_LEEWAY" envDefault:"0s"`
	// EnforceTokenType rejects tokens without a matching typ claim. Turn
	// off only to accept tokens minted before typ existed.
	EnforceTokenType bool `env:"JWT_ENFORCE_TOKEN_TYPE" envDefault:"true"`
}

type RateLimitConfig struct {
	Enabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Backend       string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	Capacity      int           `env:"RATE_LIMIT_CAPACITY" envDefault:"20"`
	RefillTokens  int           `env:"RATE_LIMIT_REFILL_TOKENS" envDefault:"20"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	IdleTTL       time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"0s"`
	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"1m"`
	TrustProxy    bool          `env:"RATE_LIMIT_TRUST_PROXY" envDefault:"false"`
}

// FullRefill is how long an empty bucket takes to fill to capacity.
func (c RateLimitConfig) FullRefill() time.Duration {
	if c.RefillTokens <= 0 {
		return 0
	}
	return time.Duration(int64(c.Window) * int64(c.Capacity) / int64(c.RefillTokens))
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrWeakJWTSecret      = fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	ErrInvalidTokenTTL    = errors.New("token TTLs must be positive")
	ErrInvalidStore       = errors.New("STORE_BACKEND must be memory, postgres or bolt")
	ErrInvalidRateLimit   = errors.New("invalid rate limit configuration")
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses cfg from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadStore reads only the store settings; JWT_SECRET is not required.
func LoadStore() (*StoreConfig, error) {
	_ = godotenv.Load()

	cfg := &StoreConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *StoreConfig) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreBolt:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return ErrInvalidStore
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.StoreConfig.Validate(); err != nil {
		return err
	}

	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.JWT.Secret) < MinJWTSecretLength {
		return ErrWeakJWTSecret
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}
	if c.JWT.Leeway < 0 {
		return fmt.Errorf("JWT_LEEWAY must not be negative")
	}

	rl := c.RateLimit
	if rl.Enabled {
		if rl.Capacity <= 0 || rl.RefillTokens <= 0 || rl.Window <= 0 {
			return fmt.Errorf("%w: capacity, refill tokens and window must be positive", ErrInvalidRateLimit)
		}
		if rl.Backend != RateLimitMemory && rl.Backend != RateLimitRedis {
			return fmt.Errorf("%w: backend must be memory or redis", ErrInvalidRateLimit)
		}
		if rl.IdleTTL != 0 && rl.IdleTTL < rl.FullRefill() {
			// An evicted bucket comes back full; evicting earlier would
			// hand out quota the client has not earned.
			return fmt.Errorf("%w: RATE_LIMIT_IDLE_TTL must be 0 or at least %s", ErrInvalidRateLimit, rl.FullRefill())
		}
		if rl.IdleTTL > 0 && rl.SweepInterval <= 0 {
			return fmt.Errorf("%w: RATE_LIMIT_SWEEP_INTERVAL must be positive when eviction is on", ErrInvalidRateLimit)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, c.ServerPort)
}
