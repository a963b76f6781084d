package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is passed to envconfig; individual fields carry the full names.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App              AppConfig
	DB               DBConfig
	Redis            RedisConfig
	JWT              JWTConfig
	Password         PasswordConfig
	Plan             PlanConfig
	AuthRateLimit    AuthRateLimitConfig
	ReserveRateLimit ReserveRateLimitConfig
	Claims           ClaimsConfig
	Share            ShareConfig
	GCP              GCPConfig
	PubSub           PubSubConfig
	Outbox           OutboxConfig
	FeatureFlags     FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Share.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRESENTLY_APP_ENV" required:"true"`
	Port         string `envconfig:"PRESENTLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRESENTLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRESENTLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRESENTLY_DB_DSN"`
	Driver string `envconfig:"PRESENTLY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PRESENTLY_DB_HOST"`
	Port     int    `envconfig:"PRESENTLY_DB_PORT" default:"5432"`
	User     string `envconfig:"PRESENTLY_DB_USER"`
	Password string `envconfig:"PRESENTLY_DB_PASSWORD"`
	Name     string `envconfig:"PRESENTLY_DB_NAME"`
	SSLMode  string `envconfig:"PRESENTLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRESENTLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRESENTLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRESENTLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRESENTLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either PRESENTLY_DB_DSN or host/user/name settings are required")
	}
	userInfo := url.UserPassword(d.User, d.Password)
	if d.Password == "" {
		userInfo = url.User(d.User)
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PRESENTLY_REDIS_URL"`
	Address      string        `envconfig:"PRESENTLY_REDIS_ADDR"`
	Password     string        `envconfig:"PRESENTLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRESENTLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRESENTLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRESENTLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRESENTLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRESENTLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRESENTLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PRESENTLY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PRESENTLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PRESENTLY_JWT_EXPIRATION_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"PRESENTLY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PRESENTLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PRESENTLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PRESENTLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PRESENTLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PRESENTLY_ARGON_KEY_LEN" default:"32"`
}

// PlanConfig carries the free-tier limits. They ship as environment-tunable
// policy rather than compile-time constants.
type PlanConfig struct {
	MaxFreeWishlists    int `envconfig:"PRESENTLY_PLAN_MAX_FREE_WISHLISTS" default:"2"`
	MaxItemsPerWishlist int `envconfig:"PRESENTLY_PLAN_MAX_ITEMS_PER_WISHLIST" default:"5"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PRESENTLY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PRESENTLY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PRESENTLY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PRESENTLY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PRESENTLY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PRESENTLY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// ReserveRateLimitConfig throttles the anonymous guest reservation surface.
type ReserveRateLimitConfig struct {
	Window  time.Duration `envconfig:"PRESENTLY_RESERVE_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"PRESENTLY_RESERVE_RATE_LIMIT_IP_LIMIT" default:"30"`
}

// ClaimsConfig controls the device claim ledger kept in Redis. The TTL
// refreshes on every write, so active devices never lose their ledger.
type ClaimsConfig struct {
	LedgerTTL time.Duration `envconfig:"PRESENTLY_CLAIMS_LEDGER_TTL" default:"2160h"`
}

// ShareConfig controls how public wishlist links are rendered.
type ShareConfig struct {
	Origin string `envconfig:"PRESENTLY_SHARE_ORIGIN" default:"https://presently.app"`
}

func (s ShareConfig) validate() error {
	parsed, err := url.Parse(s.Origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("PRESENTLY_SHARE_ORIGIN must be an absolute URL, got %q", s.Origin)
	}
	return nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"PRESENTLY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"PRESENTLY_PUBSUB_EVENTS_TOPIC" default:"presently-events"`
	EventsSubscription string `envconfig:"PRESENTLY_PUBSUB_EVENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"PRESENTLY_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"PRESENTLY_OUTBOX_POLL_INTERVAL" default:"2s"`
	MaxAttempts  int           `envconfig:"PRESENTLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRESENTLY_AUTO_MIGRATE" default:"false"`
}
