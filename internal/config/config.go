// Package config loads application configuration from environment
// variables and validates it into typed, fully-defaulted structures.
// Configuration is read once at process start and treated as immutable
// afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/retail-pos-core/internal/fault"
)

// CredentialMode selects how the backend connection authenticates.
type CredentialMode string

const (
	// CredentialTrusted uses the driver's integrated/native auth path and
	// requires no password.
	CredentialTrusted CredentialMode = "trusted"
	// CredentialSQL authenticates with an explicit user and password.
	CredentialSQL CredentialMode = "credentials"
)

// ConnectionConfig holds every knob for the backend connection. Durations
// are expressed as time.Duration; the corresponding env vars are in
// milliseconds.
type ConnectionConfig struct {
	Host           string
	Port           int
	Database       string
	CredentialMode CredentialMode
	User           string
	Password       string
	Encrypt        bool
	TrustCert      bool
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	PoolMax        int
	PoolMin        int
	PoolIdleTime   time.Duration
}

// Config holds the full runtime configuration.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DB             ConnectionConfig
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	LockoutAfter   int           // failed attempts before an account locks
	LockoutFor     time.Duration // how long a locked account stays locked
	LogLevel       string
}

// placeholderPasswords are sentinel values that ship in env templates.
// Finding one under credentials mode means the deployment was never
// configured, which must fail at startup rather than at first login.
var placeholderPasswords = []string{
	"changeme", "change_me", "password", "your_password_here", "<password>", "secret",
}

// Load reads configuration from the environment. Every missing required
// variable is collected into a single configuration error so an operator
// can fix the deployment in one pass.
func Load() (Config, error) {
	var missing []string

	req := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:       envOr("APP_ENV", "dev"),
		Port:      envOr("APP_PORT", "8080"),
		JWTSecret: req("JWT_SECRET"),
		DB: ConnectionConfig{
			Host:           req("DB_HOST"),
			Port:           envIntOr("DB_PORT", 3306),
			Database:       req("DB_NAME"),
			CredentialMode: CredentialMode(envOr("DB_AUTH_MODE", string(CredentialSQL))),
			User:           os.Getenv("DB_USER"),
			Password:       os.Getenv("DB_PASS"),
			Encrypt:        envBool("DB_ENCRYPT"),
			TrustCert:      envBool("DB_TRUST_CERT"),
			ConnectTimeout: envMillisOr("DB_CONNECT_TIMEOUT_MS", 15*time.Second),
			RequestTimeout: envMillisOr("DB_REQUEST_TIMEOUT_MS", 30*time.Second),
			RetryAttempts:  envIntOr("DB_RETRY_ATTEMPTS", 3),
			RetryDelay:     envMillisOr("DB_RETRY_DELAY_MS", time.Second),
			PoolMax:        envIntOr("DB_POOL_MAX", 25),
			PoolMin:        envIntOr("DB_POOL_MIN", 5),
			PoolIdleTime:   envMillisOr("DB_POOL_IDLE_TIMEOUT_MS", 10*time.Minute),
		},
		AccessTTLMin:   envIntOr("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envIntOr("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envIntOr("BCRYPT_COST", 12),
		LockoutAfter:   envIntOr("LOCKOUT_THRESHOLD", 5),
		LockoutFor:     time.Duration(envIntOr("LOCKOUT_MINUTES", 30)) * time.Minute,
		LogLevel:       envOr("LOG_LEVEL", "info"),
	}

	if len(missing) > 0 {
		return Config{}, fault.Newf(fault.KindConfiguration,
			"missing required env vars: %s", strings.Join(missing, ", "))
	}
	if err := cfg.DB.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the connection invariants. Invalid configuration is a
// deployment error and is never retried.
func (c ConnectionConfig) Validate() error {
	if c.Host == "" {
		return fault.New(fault.KindConfiguration, "db host is required")
	}
	if c.Database == "" {
		return fault.New(fault.KindConfiguration, "db name is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fault.Newf(fault.KindConfiguration, "db port %d out of range", c.Port)
	}
	switch c.CredentialMode {
	case CredentialTrusted:
		// integrated auth; user and password are optional
	case CredentialSQL:
		if c.User == "" {
			return fault.New(fault.KindConfiguration, "db user is required under credentials auth mode")
		}
		if c.Password == "" {
			return fault.New(fault.KindConfiguration, "db password is required under credentials auth mode")
		}
		for _, p := range placeholderPasswords {
			if strings.EqualFold(c.Password, p) {
				return fault.New(fault.KindConfiguration, "db password is a placeholder value; set a real credential")
			}
		}
	default:
		return fault.Newf(fault.KindConfiguration, "unknown auth mode %q", c.CredentialMode)
	}
	if c.RetryAttempts < 1 {
		return fault.New(fault.KindConfiguration, "retry attempts must be at least 1")
	}
	if c.PoolMin > c.PoolMax {
		return fault.Newf(fault.KindConfiguration, "pool min %d exceeds pool max %d", c.PoolMin, c.PoolMax)
	}
	return nil
}

// Addr returns the host:port pair used in the DSN.
func (c ConnectionConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// envOr returns the value of key or the fallback when unset/empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses key as an int, returning the fallback when unset or
// unparsable.
func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envMillisOr parses key as a millisecond count.
func envMillisOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}

// envBool treats "true" and "1" (any case) as true.
func envBool(key string) bool {
	v := os.Getenv(key)
	return strings.EqualFold(v, "true") || v == "1"
}
