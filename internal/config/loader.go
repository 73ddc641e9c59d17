package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the calendar service.
type Config struct {
	HTTPPort   int
	SQLiteDSN  string
	SessionTTL time.Duration
	// HorizonDays bounds expansion of open-ended recurring events: series
	// without an end date or count are materialized this many days ahead.
	HorizonDays int
	LogLevel    string
}

// Load parses configuration values from the current process environment.
//
// A .env file in the working directory is merged in first without overriding
// variables already set. The loader applies defaults for optional fields
// while validating the ones that are present.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:    8080,
		SQLiteDSN:   "file:calendar.db?_foreign_keys=on",
		SessionTTL:  24 * time.Hour,
		HorizonDays: 730,
		LogLevel:    "info",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CALENDAR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CALENDAR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CALENDAR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CALENDAR_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CALENDAR_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if horizonValue := strings.TrimSpace(os.Getenv("CALENDAR_DEFAULT_HORIZON")); horizonValue != "" {
		days, err := strconv.Atoi(horizonValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "CALENDAR_DEFAULT_HORIZON")
		} else {
			cfg.HorizonDays = days
		}
	}

	if level := strings.TrimSpace(os.Getenv("CALENDAR_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "CALENDAR_LOG_LEVEL")
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("환경 변수 값이 올바르지 않습니다: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
