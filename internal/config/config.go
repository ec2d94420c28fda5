package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the summit-checkin service configuration. Everything is
// read from environment variables with sensible local-dev defaults, so a
// plain `go run ./cmd/summit-checkin` works against a sqlite file in the
// working directory.
type Config struct {
	HTTP struct {
		Addr string
	}

	// Ledger selects where check-ins persist.
	// Driver: "sqlite" (default, single file), "postgres", or "memory"
	// (dev fallback, wiped on restart).
	Ledger struct {
		Driver     string
		SQLitePath string
	}
	Database DatabaseConfig

	// Catalog is the rooms reference file (room_code, session,
	// max_capacity[, nearby]). A missing file is non-fatal: the service
	// starts with an empty catalog and surfaces the warning inline.
	Catalog struct {
		Path string
	}

	// Admin.Key unlocks the admin surface (?key=...). Empty disables
	// admin entirely.
	Admin struct {
		Key string
	}

	// Checkin.EmailDomain, when set (e.g. "@ucr.edu"), rejects
	// submissions whose email does not end with it. Empty disables the
	// policy.
	Checkin struct {
		EmailDomain string
	}

	// Links.BaseURL is the deployed URL embedded in per-room check-in
	// links (and ultimately in the printed QR codes).
	Links struct {
		BaseURL string
	}

	// Mirror configures the best-effort spreadsheet copy of the ledger.
	// Target: "workbook" (local .xlsx) or "webhook" (POST each row to a
	// remote sheet endpoint).
	Mirror struct {
		Enabled      bool
		Target       string
		WorkbookPath string
		WebhookURL   string
		QueueSize    int
	}

	Log struct {
		Level  string
		Format string
	}
}

// DatabaseConfig is the postgres backend configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Load reads the configuration from the environment.
func Load() *Config {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Ledger.Driver = getEnv("LEDGER_DRIVER", "sqlite")
	cfg.Ledger.SQLitePath = getEnv("SQLITE_PATH", "checkins.db")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "summit")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "25"), 25)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Catalog.Path = getEnv("ROOMS_CSV", "rooms.csv")

	cfg.Admin.Key = getEnv("ADMIN_KEY", "")

	cfg.Checkin.EmailDomain = getEnv("CHECKIN_EMAIL_DOMAIN", "")

	cfg.Links.BaseURL = getEnv("LINKS_BASE_URL", "http://localhost:8080")

	cfg.Mirror.Enabled = getEnv("MIRROR_ENABLED", "false") == "true"
	cfg.Mirror.Target = getEnv("MIRROR_TARGET", "workbook")
	cfg.Mirror.WorkbookPath = getEnv("MIRROR_XLSX_PATH", "checkins_mirror.xlsx")
	cfg.Mirror.WebhookURL = getEnv("MIRROR_WEBHOOK_URL", "")
	cfg.Mirror.QueueSize = parseInt(getEnv("MIRROR_QUEUE_SIZE", "256"), 256)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
