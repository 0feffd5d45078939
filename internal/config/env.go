package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("FOCUSSTAT_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if rules := os.Getenv("FOCUSSTAT_RULES"); rules != "" {
		cfg.Classifier.RulesPath = rules
	}

	// Stats configuration
	if width := os.Getenv("FOCUSSTAT_BUCKET_WIDTH"); width != "" {
		if seconds, err := strconv.Atoi(width); err == nil && seconds > 0 {
			// kept as given so Validate reports a width that does not divide a day
			cfg.Stats.BucketWidth = time.Duration(seconds) * time.Second
		}
	}

	if interval := os.Getenv("FOCUSSTAT_FLUSH_INTERVAL"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil && seconds > 0 {
			cfg.Stats.FlushInterval = time.Duration(seconds) * time.Second
		}
	}

	if timeout := os.Getenv("FOCUSSTAT_WRITE_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil && seconds > 0 {
			cfg.Stats.WriteTimeout = time.Duration(seconds) * time.Second
		}
	}

	if timeZone := os.Getenv("FOCUSSTAT_TIMEZONE"); timeZone != "" {
		cfg.Stats.TimeZone = timeZone
	}

	// Tracker configuration
	if timeout := os.Getenv("FOCUSSTAT_RESOLVE_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil && ms > 0 {
			cfg.Tracker.ResolveTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	if titles := os.Getenv("FOCUSSTAT_TRACK_TITLES"); titles != "" {
		if val, err := strconv.ParseBool(titles); err == nil {
			cfg.Tracker.TrackTitleChanges = val
		}
	}

	if display := os.Getenv("FOCUSSTAT_DISPLAY"); display != "" {
		cfg.Tracker.Display = display
	}

	// Daemon configuration
	if pidFile := os.Getenv("FOCUSSTAT_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("FOCUSSTAT_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
