package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Collector Collector
	Browser   Browser
	Merge     Merge
	Database  Database
	Notify    Notify
	Logging   Logging
}

// Collector controls the direct-HTTP fetch path
type Collector struct {
	DestDir       string
	Retries       int
	Timeout       time.Duration
	RetentionDays int // 0 disables the raw-file sweep
}

// Browser controls the headless-browser fetch path.
//
// Selectors are configuration, not logic: the target site's markup is
// rediscovered by hand whenever it changes, so every lookup expression
// lives here rather than in the fetcher.
type Browser struct {
	NavTimeout      time.Duration
	DownloadTimeout time.Duration
	Selectors       Selectors
}

// Selectors maps logical page roles to lookup expressions.
type Selectors struct {
	UsernameField string
	PasswordField string
	LoginButton   string
	// DownloadTriggers is an ordered fallback list; the first selector
	// that matches wins.
	DownloadTriggers []string
}

// Merge controls the merge/normalize step
type Merge struct {
	// HeaderSkip is the number of junk rows before the header line.
	// -1 means detect by scanning for the known first header column.
	HeaderSkip int
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// Notify carries the webhook used for whole-run failure alerts
type Notify struct {
	WebhookURL string
}

type Logging struct {
	Level    string
	FilePath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Collector: Collector{
			DestDir:       getEnv("COLLECTOR_DEST_DIR", "data/raw"),
			Retries:       getIntEnv("COLLECTOR_RETRIES", 3),
			Timeout:       getDurationEnv("COLLECTOR_TIMEOUT", 30*time.Second),
			RetentionDays: getIntEnv("COLLECTOR_RETENTION_DAYS", 0),
		},
		Browser: Browser{
			NavTimeout:      getDurationEnv("BROWSER_NAV_TIMEOUT", 30*time.Second),
			DownloadTimeout: getDurationEnv("BROWSER_DOWNLOAD_TIMEOUT", 60*time.Second),
			Selectors: Selectors{
				UsernameField:    getEnv("BROWSER_SELECTOR_USERNAME", "#identifier"),
				PasswordField:    getEnv("BROWSER_SELECTOR_PASSWORD", `input[name="password"]`),
				LoginButton:      getEnv("BROWSER_SELECTOR_LOGIN", `#login_button`),
				DownloadTriggers: getListEnv("BROWSER_SELECTOR_DOWNLOAD", []string{"#search_primary"}),
			},
		},
		Merge: Merge{
			HeaderSkip: getIntEnv("MERGE_HEADER_SKIP", -1),
		},
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "traindata"),
		},
		Notify: Notify{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Logging: Logging{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE", "traindata.log"),
		},
	}

	return cfg, nil
}

func (d *Database) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.DBName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
