package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const day = 24 * time.Hour

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Classification rules
	Classifier ClassifierConfig

	// Bucketing and persistence
	Stats StatsConfig

	// Tracker configuration
	Tracker TrackerConfig

	// Daemon configuration
	Daemon DaemonConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// ClassifierConfig points at the category rule file
type ClassifierConfig struct {
	RulesPath string // YAML rules, read once at startup
}

// StatsConfig holds aggregation and checkpoint settings
type StatsConfig struct {
	BucketWidth   time.Duration // Width of a time bucket, must divide 24h
	FlushInterval time.Duration // How often totals are checkpointed
	WriteTimeout  time.Duration // Upper bound for one store write
	TimeZone      string        // Zone buckets are aligned in
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	ResolveTimeout    time.Duration // Upper bound for one metadata lookup
	TrackTitleChanges bool          // Reclassify when the focused window's title changes
	Display           string        // X display name, empty means $DISPLAY
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
	LogFile string // Where the detached daemon writes its log
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/focusstat/focusstat.db
		},
		Classifier: ClassifierConfig{
			RulesPath: defaultRulesPath(),
		},
		Stats: StatsConfig{
			BucketWidth:   time.Hour,
			FlushInterval: 60 * time.Second,
			WriteTimeout:  5 * time.Second,
			TimeZone:      "Local",
		},
		Tracker: TrackerConfig{
			ResolveTimeout:    500 * time.Millisecond,
			TrackTitleChanges: true,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/focusstat-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/focusstat-%d.log", os.Getuid()),
		},
	}
}

func defaultRulesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rules.yaml"
	}
	return filepath.Join(home, ".config", "focusstat", "rules.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateBucketWidth(c.Stats.BucketWidth); err != nil {
		return err
	}

	if c.Stats.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", c.Stats.FlushInterval)
	}

	if c.Stats.FlushInterval >= c.Stats.BucketWidth {
		return fmt.Errorf("flush interval (%v) must be shorter than the bucket width (%v)",
			c.Stats.FlushInterval, c.Stats.BucketWidth)
	}

	if c.Stats.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", c.Stats.WriteTimeout)
	}

	if c.Tracker.ResolveTimeout <= 0 {
		return fmt.Errorf("resolve timeout must be positive, got %v", c.Tracker.ResolveTimeout)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Daemon.LogFile == "" {
		return fmt.Errorf("log file path cannot be empty")
	}

	return nil
}

func validateBucketWidth(width time.Duration) error {
	if width <= 0 {
		return fmt.Errorf("bucket width must be positive, got %v", width)
	}
	if day%width != 0 {
		return fmt.Errorf("bucket width (%v) must divide 24h evenly", width)
	}
	return nil
}

// SetBucketWidth sets the bucket width with validation
func (c *Config) SetBucketWidth(width time.Duration) error {
	if err := validateBucketWidth(width); err != nil {
		return err
	}
	c.Stats.BucketWidth = width
	return nil
}

// SetFlushInterval sets the checkpoint interval with validation
func (c *Config) SetFlushInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", interval)
	}
	if interval >= c.Stats.BucketWidth {
		return fmt.Errorf("flush interval must be shorter than %v", c.Stats.BucketWidth)
	}
	c.Stats.FlushInterval = interval
	return nil
}

// Location resolves the configured time zone
func (c *Config) Location() (*time.Location, error) {
	if c.Stats.TimeZone == "" || c.Stats.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Stats.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Stats.TimeZone, err)
	}
	return loc, nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Classifier:
    Rules: %s
  Stats:
    Bucket Width: %v
    Flush Interval: %v
    Write Timeout: %v
    Time Zone: %s
  Tracker:
    Resolve Timeout: %v
    Track Title Changes: %v
    Display: %s
  Daemon:
    PID File: %s
    Log File: %s`,
		c.Database.Path,
		c.Classifier.RulesPath,
		c.Stats.BucketWidth,
		c.Stats.FlushInterval,
		c.Stats.WriteTimeout,
		c.Stats.TimeZone,
		c.Tracker.ResolveTimeout,
		c.Tracker.TrackTitleChanges,
		c.Tracker.Display,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
	)
}
