package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

const (
	defaultJWTSecret     = "a-very-secret-key-should-be-longer-and-random"
	defaultRefreshSecret = "default_insecure_refresh_secret_please_change_this_!@#$"
)

// Config holds application configuration.
type Config struct {
	Port          string
	IsProduction  bool
	StoreDriver   string
	DatabaseURL   string
	EnableDBCheck bool
	// MigrationsPath is a golang-migrate source URL, e.g. file://migrations.
	MigrationsPath string
	MongoURI       string
	MongoDatabase  string

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string
	// Refresh Token Config
	RefreshTokenSecret         string
	RefreshTokenExpiryDuration time.Duration

	BcryptCost       int
	LockoutThreshold int
	LockoutDuration  time.Duration

	// Requests allowed per client IP within each period. The login limit
	// must exceed LockoutThreshold so a lock is reported before throttling.
	LoginRateLimit     int
	LoginRatePeriod    time.Duration
	RegisterRateLimit  int
	RegisterRatePeriod time.Duration
	RateLimitRedisURL  string

	AllowedOrigins []string

	// Bootstrap admin, created at startup when all three are set.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "blog")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRY_DURATION", "1h")
	v.SetDefault("JWT_ISSUER", "blog-backend")
	v.SetDefault("REFRESH_TOKEN_SECRET", defaultRefreshSecret)
	v.SetDefault("REFRESH_TOKEN_EXPIRY_DURATION", "168h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_DURATION", "15m")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("LOGIN_RATE_PERIOD", "15m")
	v.SetDefault("REGISTER_RATE_LIMIT", 5)
	v.SetDefault("REGISTER_RATE_PERIOD", "1h")
	v.SetDefault("RATE_LIMIT_REDIS_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:               v.GetString("PORT"),
		IsProduction:       v.GetBool("IS_PRODUCTION"),
		StoreDriver:        strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DatabaseURL:        v.GetString("PGSQL_URL"),
		EnableDBCheck:      v.GetBool("ENABLE_DB_CHECK"),
		MigrationsPath:     v.GetString("MIGRATIONS_PATH"),
		MongoURI:           v.GetString("MONGODB_URI"),
		MongoDatabase:      v.GetString("MONGODB_DATABASE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		LockoutThreshold:   v.GetInt("LOCKOUT_THRESHOLD"),
		LoginRateLimit:     v.GetInt("LOGIN_RATE_LIMIT"),
		RegisterRateLimit:  v.GetInt("REGISTER_RATE_LIMIT"),
		RateLimitRedisURL:  v.GetString("RATE_LIMIT_REDIS_URL"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		AdminUsername:      v.GetString("ADMIN_USERNAME"),
		AdminEmail:         v.GetString("ADMIN_EMAIL"),
		AdminPassword:      v.GetString("ADMIN_PASSWORD"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	var err error
	if cfg.JWTExpiryDuration, err = parseDuration(v, "JWT_EXPIRY_DURATION", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenExpiryDuration, err = parseDuration(v, "REFRESH_TOKEN_EXPIRY_DURATION", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LockoutDuration, err = parseDuration(v, "LOCKOUT_DURATION", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LoginRatePeriod, err = parseDuration(v, "LOGIN_RATE_PERIOD", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RegisterRatePeriod, err = parseDuration(v, "REGISTER_RATE_PERIOD", time.Hour); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaultJWTSecret // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.RefreshTokenSecret == "" {
		log.Println("Warning: REFRESH_TOKEN_SECRET is not set, using default insecure secret. THIS IS NOT FOR PRODUCTION.")
		cfg.RefreshTokenSecret = defaultRefreshSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("PGSQL_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGODB_URI and MONGODB_DATABASE are required when STORE_DRIVER=mongo")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be positive, got %d", c.LockoutThreshold)
	}
	if c.LockoutDuration <= 0 || c.JWTExpiryDuration <= 0 || c.RefreshTokenExpiryDuration <= 0 {
		return errors.New("token and lockout durations must be positive")
	}
	if c.LoginRateLimit < 1 || c.RegisterRateLimit < 1 || c.LoginRatePeriod <= 0 || c.RegisterRatePeriod <= 0 {
		return errors.New("rate limits and their periods must be positive")
	}
	if c.LoginRateLimit <= c.LockoutThreshold {
		return fmt.Errorf("LOGIN_RATE_LIMIT (%d) must exceed LOCKOUT_THRESHOLD (%d)", c.LoginRateLimit, c.LockoutThreshold)
	}

	if c.JWTSecret == c.RefreshTokenSecret {
		if c.IsProduction {
			return errors.New("JWT_SECRET and REFRESH_TOKEN_SECRET must differ")
		}
		log.Println("Warning: JWT_SECRET and REFRESH_TOKEN_SECRET are identical.")
	}
	if c.IsProduction && (c.JWTSecret == defaultJWTSecret || c.RefreshTokenSecret == defaultRefreshSecret) {
		return errors.New("default token secrets are not allowed in production")
	}
	return nil
}

// SeedAdmin reports whether a bootstrap admin is configured.
func (c *Config) SeedAdmin() bool {
	return c.AdminUsername != "" && c.AdminEmail != "" && c.AdminPassword != ""
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		log.Printf("Warning: %s not set. Defaulting to %s.\n", key, fallback)
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s (%q): %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
