// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Sub-configurations for optional infrastructure
// (Redis, RabbitMQ, SMTP, object storage) carry their own defaults so a
// development setup only needs the database and JWT variables.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Settings  Settings
	Log       LogConfig
	RabbitMQ  RabbitMQConfig
	SMTP      SMTPConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory is loaded first when
// present; variables already set in the environment win.  Required
// variables are enforced by must() and a missing value is fatal.
func Load() Config {
	LoadDotEnv()
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		Settings:  LoadSettings(),
		Log:       LoadLogConfig(),
		RabbitMQ:  LoadRabbitMQConfig(),
		SMTP:      LoadSMTPConfig(),
		Storage:   LoadStorageConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}
}

// DatabaseConfig is the subset of Config needed by tools that only talk to
// MySQL (migrations, the management commands).
type DatabaseConfig struct {
	User, Pass, Host, Port, Name string
}

// Database returns the connection settings of c.
func (c Config) Database() DatabaseConfig {
	return DatabaseConfig{User: c.DBUser, Pass: c.DBPass, Host: c.DBHost, Port: c.DBPort, Name: c.DBName}
}

// LoadDatabaseConfig reads the DB_* variables only.
func LoadDatabaseConfig() DatabaseConfig {
	LoadDotEnv()
	return DatabaseConfig{
		User: must("DB_USER"),
		Pass: os.Getenv("DB_PASS"),
		Host: must("DB_HOST"),
		Port: must("DB_PORT"),
		Name: must("DB_NAME"),
	}
}

// LoadDotEnv loads ENV_FILE (default ".env") into the process environment
// without overriding variables that are already set.  A missing file is
// not an error.
func LoadDotEnv() {
	path := envStr("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warnf("config: could not read %s: %v", path, err)
	}
}

// IsProd reports whether the application runs in production.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
