package config

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds every setting the blog server reads at startup.
type Config struct {
	Server struct {
		Port         string
		CookieSecure bool
	}
	Database struct {
		DSN string // Data Source Name, e.g. "blog.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	}
	Session struct {
		Expiration      time.Duration
		CleanupInterval time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
}

// LoadConfig reads the configuration from BLOG_* environment variables,
// falling back to defaults suitable for local development.
func LoadConfig() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnv("BLOG_PORT", "8080")
	// Secure cookies need HTTPS; set BLOG_COOKIE_SECURE=true in prod.
	cfg.Server.CookieSecure = getEnv("BLOG_COOKIE_SECURE", "false") == "true"

	dbName := getEnv("BLOG_DB_NAME", "blog.db")
	cfg.Database.DSN = DSN(dbName)

	cfg.Session.Expiration = time.Duration(getEnvInt("BLOG_SESSION_HOURS", 24)) * time.Hour
	cfg.Session.CleanupInterval = time.Duration(getEnvInt("BLOG_SESSION_CLEANUP_MINUTES", 30)) * time.Minute

	cfg.Log.Level = getEnv("BLOG_LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("BLOG_LOG_FORMAT", "text")

	return cfg
}

// DSN builds the sqlite3 data source name for a database file.
func DSN(dbName string) string {
	return dbName + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// ConfigureLogging applies the log level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	if c.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		log.Warnf("Invalid log level %q, using info: %v", c.Log.Level, err)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Warnf("Invalid value %q for %s. Using default %d.", raw, key, fallback)
		return fallback
	}
	return value
}
