package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOCUSSTAT_DB_PATH", "/tmp/stats.db")
	t.Setenv("FOCUSSTAT_RULES", "/tmp/rules.yaml")
	t.Setenv("FOCUSSTAT_BUCKET_WIDTH", "1800")
	t.Setenv("FOCUSSTAT_FLUSH_INTERVAL", "30")
	t.Setenv("FOCUSSTAT_RESOLVE_TIMEOUT_MS", "250")
	t.Setenv("FOCUSSTAT_TRACK_TITLES", "false")
	t.Setenv("FOCUSSTAT_DISPLAY", ":1")

	cfg := New()

	if cfg.Database.Path != "/tmp/stats.db" {
		t.Errorf("Database.Path = %s", cfg.Database.Path)
	}
	if cfg.Classifier.RulesPath != "/tmp/rules.yaml" {
		t.Errorf("Classifier.RulesPath = %s", cfg.Classifier.RulesPath)
	}
	if cfg.Stats.BucketWidth != 30*time.Minute {
		t.Errorf("Stats.BucketWidth = %v, want 30m", cfg.Stats.BucketWidth)
	}
	if cfg.Stats.FlushInterval != 30*time.Second {
		t.Errorf("Stats.FlushInterval = %v, want 30s", cfg.Stats.FlushInterval)
	}
	if cfg.Tracker.ResolveTimeout != 250*time.Millisecond {
		t.Errorf("Tracker.ResolveTimeout = %v, want 250ms", cfg.Tracker.ResolveTimeout)
	}
	if cfg.Tracker.TrackTitleChanges {
		t.Error("Tracker.TrackTitleChanges should be false")
	}
	if cfg.Tracker.Display != ":1" {
		t.Errorf("Tracker.Display = %s", cfg.Tracker.Display)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("FOCUSSTAT_BUCKET_WIDTH", "25200") // 7h
	t.Setenv("FOCUSSTAT_FLUSH_INTERVAL", "soon")

	cfg := New()

	if cfg.Stats.FlushInterval != time.Minute {
		t.Errorf("Stats.FlushInterval = %v, want default 1m", cfg.Stats.FlushInterval)
	}

	// an unusable width is not silently replaced by the default
	if cfg.Stats.BucketWidth != 7*time.Hour {
		t.Errorf("Stats.BucketWidth = %v, want 7h", cfg.Stats.BucketWidth)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must divide 24h") {
		t.Errorf("Validate() = %v, want bucket width error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"quarter hour buckets", func(c *Config) { c.Stats.BucketWidth = 15 * time.Minute }, false},
		{"zero bucket width", func(c *Config) { c.Stats.BucketWidth = 0 }, true},
		{"bucket width not dividing a day", func(c *Config) { c.Stats.BucketWidth = 5 * time.Hour }, true},
		{"flush interval equal to bucket", func(c *Config) { c.Stats.FlushInterval = time.Hour }, true},
		{"zero flush interval", func(c *Config) { c.Stats.FlushInterval = 0 }, true},
		{"zero write timeout", func(c *Config) { c.Stats.WriteTimeout = 0 }, true},
		{"zero resolve timeout", func(c *Config) { c.Tracker.ResolveTimeout = 0 }, true},
		{"named zone", func(c *Config) { c.Stats.TimeZone = "UTC" }, false},
		{"unknown zone", func(c *Config) { c.Stats.TimeZone = "Nowhere/Special" }, true},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
