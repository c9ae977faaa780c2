package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	SecureCookies      bool
	BlockSuspicious    bool

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP; an empty URL disables record events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (sync worker)
	GoogleSpreadsheetID      string
	GoogleExpensesSheet      string
	GoogleIncomeSheet        string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	SyncPrefetch             int

	// Sessions
	SessionTTL time.Duration
	// SessionCapacity bounds the in-memory session store. Past it the
	// least recently used sessions are evicted and those users must log
	// in again.
	SessionCapacity int

	// Reports and exports
	ReportBucketMode string
	// PDFFontPath overrides the embedded PDF font with a TTF file.
	PDFFontPath     string
	DefaultCurrency string

	LogLevel string
}

var (
	validBackends    = []string{"memory", "sqlite"}
	validBucketModes = []string{"calendar", "legacy30"}
	validLogLevels   = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		SecureCookies:      getEnvBool("SECURE_COOKIES", false),
		BlockSuspicious:    getEnvBool("BLOCK_SUSPICIOUS_REQUESTS", false),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expensetracker.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensetracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_records"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleExpensesSheet:      getEnv("GOOGLE_EXPENSES_SHEET", "Expenses"),
		GoogleIncomeSheet:        getEnv("GOOGLE_INCOME_SHEET", "Income"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		SyncPrefetch:             getEnvInt("SYNC_PREFETCH", 10),

		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionCapacity: getEnvInt("SESSION_CAPACITY", 100000),

		ReportBucketMode: strings.ToLower(getEnv("REPORT_BUCKET_MODE", "calendar")),
		PDFFontPath:      getEnv("PDF_FONT_PATH", ""),
		DefaultCurrency:  strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// Validate validates the web application configuration and returns an
// error listing every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	errors = append(errors, c.validateAMQP()...)

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}
	if c.SessionCapacity < 1 {
		errors = append(errors, fmt.Sprintf("invalid session capacity %d: must be at least 1", c.SessionCapacity))
	}

	if !slices.Contains(validBucketModes, c.ReportBucketMode) {
		errors = append(errors, fmt.Sprintf("invalid report bucket mode '%s': must be one of %v", c.ReportBucketMode, validBucketModes))
	}

	if !validCurrency(c.DefaultCurrency) {
		errors = append(errors, fmt.Sprintf("invalid default currency '%s': must be a three-letter code", c.DefaultCurrency))
	}

	if c.LogLevel != "" && !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker validates what the sync worker needs: a broker and a
// spreadsheet it can write to.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required by the sync worker")
	}
	errors = append(errors, c.validateAMQP()...)

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required by the sync worker")
	}
	if c.GoogleExpensesSheet == "" || c.GoogleIncomeSheet == "" {
		errors = append(errors, "Google expenses and income sheet names cannot be empty")
	}

	hasFile := c.GoogleServiceAccountFile != ""
	hasJSON := c.GoogleServiceAccountJSON != ""
	if !hasFile && !hasJSON {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SyncPrefetch < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync prefetch %d: must be at least 1", c.SyncPrefetch))
	} else if c.SyncPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync prefetch %d: must be at most 1000", c.SyncPrefetch))
	}

	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
