package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers, key modes, secret providers and rate limit backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	KeyModeSecret    = "secret"
	KeyModeEphemeral = "ephemeral"

	SecretsEnv = "env"
	SecretsAWS = "aws"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	Issuer    string        // Required: issuer URL, also the base of every endpoint
	Resource  string        // Optional: protected resource URL (default: issuer)
	Scopes    []string      // Optional: supported scopes (default: kb:read kb:write)
	Audiences []string      // Optional: accepted aud values; empty accepts any non-empty aud
	Algorithm string        // Optional: JWT signing algorithm (EdDSA, RS256, ES256) (default: EdDSA)
	KeyMode   string        // Optional: secret or ephemeral (default: secret)
	ClockSkew time.Duration // Optional: leeway on exp/nbf when verifying (default: 0)

	OwnerEmail   string // Required: the one account that can log in
	OwnerSubject string // Optional: sub claim for the owner (default: derived from email)

	StoreDriver  string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile string // Optional: SQLite database path (default: ./kbauth.db)
	DatabaseURL  string // Required for postgres: connection URL

	SecretsProvider       string // Optional: env or aws (default: env)
	AWSRegion             string // Optional: region for the aws provider
	AWSSecretID           string // Required for aws: Secrets Manager secret id or ARN
	AWSSecretVersionStage string // Optional: version stage (default: AWSCURRENT)

	RateLimitBackend string // Optional: memory or redis (default: memory)
	RedisURL         string // Required for redis: redis:// URL

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present; variables already
// set in the environment win.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Issuer:    strings.TrimRight(os.Getenv("AUTH_ISSUER"), "/"),
		Resource:  os.Getenv("AUTH_RESOURCE"),
		Scopes:    strings.Fields(getEnvOrDefault("AUTH_SCOPES", "kb:read kb:write")),
		Audiences: getEnvListOrDefault("AUTH_AUDIENCES", nil),
		Algorithm: getEnvOrDefault("AUTH_ALGORITHM", "EdDSA"),
		KeyMode:   getEnvOrDefault("AUTH_KEY_MODE", KeyModeSecret),
		ClockSkew: getEnvDurationOrDefault("AUTH_CLOCK_SKEW", 0),

		OwnerEmail:   strings.TrimSpace(os.Getenv("AUTH_OWNER_EMAIL")),
		OwnerSubject: os.Getenv("AUTH_OWNER_SUBJECT"),

		StoreDriver:  getEnvOrDefault("AUTH_STORE_DRIVER", StoreSQLite),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "kbauth.db"),
		DatabaseURL:  os.Getenv("AUTH_DATABASE_URL"),

		SecretsProvider:       getEnvOrDefault("AUTH_SECRETS_PROVIDER", SecretsEnv),
		AWSRegion:             os.Getenv("AUTH_AWS_REGION"),
		AWSSecretID:           os.Getenv("AUTH_AWS_SECRET_ID"),
		AWSSecretVersionStage: os.Getenv("AUTH_AWS_SECRET_VERSION_STAGE"),

		RateLimitBackend: getEnvOrDefault("AUTH_RATELIMIT_BACKEND", RateLimitMemory),
		RedisURL:         os.Getenv("AUTH_REDIS_URL"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if cfg.Resource == "" {
		cfg.Resource = cfg.Issuer
	}
	if cfg.OwnerSubject == "" {
		cfg.OwnerSubject = subjectFromEmail(cfg.OwnerEmail)
	}

	return cfg
}

// Validate reports every problem with cfg at once.
func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER is required"))
	} else if u, err := url.Parse(c.Issuer); err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		errs = append(errs, fmt.Errorf("AUTH_ISSUER %q must be an absolute http(s) URL", c.Issuer))
	} else if u.RawQuery != "" || u.Fragment != "" {
		errs = append(errs, fmt.Errorf("AUTH_ISSUER %q must not carry a query or fragment", c.Issuer))
	}

	if c.OwnerEmail == "" || !strings.Contains(c.OwnerEmail, "@") {
		errs = append(errs, errors.New("AUTH_OWNER_EMAIL is required"))
	}
	if len(c.Scopes) == 0 {
		errs = append(errs, errors.New("AUTH_SCOPES must list at least one scope"))
	}

	switch c.KeyMode {
	case KeyModeSecret, KeyModeEphemeral:
	default:
		errs = append(errs, fmt.Errorf("AUTH_KEY_MODE %q must be %s or %s", c.KeyMode, KeyModeSecret, KeyModeEphemeral))
	}

	switch c.StoreDriver {
	case StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_STORE_DRIVER %q must be %s or %s", c.StoreDriver, StoreSQLite, StorePostgres))
	}

	switch c.SecretsProvider {
	case SecretsEnv:
	case SecretsAWS:
		if c.AWSSecretID == "" {
			errs = append(errs, errors.New("AUTH_AWS_SECRET_ID is required for the aws secrets provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_SECRETS_PROVIDER %q must be %s or %s", c.SecretsProvider, SecretsEnv, SecretsAWS))
	}

	switch c.RateLimitBackend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("AUTH_REDIS_URL is required for the redis rate limit backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_RATELIMIT_BACKEND %q must be %s or %s", c.RateLimitBackend, RateLimitMemory, RateLimitRedis))
	}

	if c.Env == "prod" && c.KeyMode == KeyModeEphemeral {
		errs = append(errs, errors.New("AUTH_KEY_MODE=ephemeral is not allowed when ENV=prod"))
	}

	return errors.Join(errs...)
}

// subjectFromEmail derives a stable sub claim from the owner's email.
func subjectFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	return local
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// getEnvListOrDefault splits a comma or space separated list.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
}
