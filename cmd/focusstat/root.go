package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/focusstat/internal/classifier"
	"github.com/actionsum/focusstat/internal/config"
	"github.com/actionsum/focusstat/internal/database"
)

const appName = "focusstat"

// cfg holds defaults, environment and flags merged in PersistentPreRunE
var cfg *config.Config

var (
	dbPathFlag  string
	rulesFlag   string
	displayFlag string

	bucketWidthFlag   time.Duration
	flushIntervalFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Track focused time per application category on X11",
	Long: `focusstat follows X11 focus changes, classifies the focused window into a
category from your rules file and accumulates time per category in hourly
buckets, checkpointed to a SQLite database.

Environment Variables:
  FOCUSSTAT_DB_PATH             Database file path
  FOCUSSTAT_RULES               Category rules file (YAML)
  FOCUSSTAT_BUCKET_WIDTH        Bucket width in seconds, must divide a day
  FOCUSSTAT_FLUSH_INTERVAL      Checkpoint interval in seconds
  FOCUSSTAT_WRITE_TIMEOUT       Database write timeout in seconds
  FOCUSSTAT_TIMEZONE            Zone buckets are aligned in (default Local)
  FOCUSSTAT_RESOLVE_TIMEOUT_MS  Window metadata lookup timeout
  FOCUSSTAT_TRACK_TITLES        Reclassify on title changes (true/false)
  FOCUSSTAT_DISPLAY             X display, defaults to $DISPLAY
  FOCUSSTAT_PID_FILE            PID file path
  FOCUSSTAT_LOG_FILE            Daemon log file path`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.New()

		flags := cmd.Flags()
		if flags.Changed("db") {
			cfg.Database.Path = dbPathFlag
		}
		if flags.Changed("rules") {
			cfg.Classifier.RulesPath = rulesFlag
		}
		if flags.Changed("display") {
			cfg.Tracker.Display = displayFlag
		}
		if flags.Changed("bucket-width") {
			cfg.Stats.BucketWidth = bucketWidthFlag
		}
		if flags.Changed("flush-interval") {
			cfg.Stats.FlushInterval = flushIntervalFlag
		}

		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "database file path")
	rootCmd.PersistentFlags().StringVar(&rulesFlag, "rules", "", "category rules file")
	rootCmd.PersistentFlags().StringVar(&displayFlag, "display", "", "X display to connect to")
	rootCmd.PersistentFlags().DurationVar(&bucketWidthFlag, "bucket-width", time.Hour, "time bucket width, must divide 24h")
	rootCmd.PersistentFlags().DurationVar(&flushIntervalFlag, "flush-interval", time.Minute, "checkpoint interval, shorter than the bucket width")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, watchCmd, classifyCmd,
		categoriesCmd, reportCmd, clearCmd, versionCmd)
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openRepository() (*database.Repository, *database.DB, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return database.NewRepository(db), db, nil
}

func loadMatcher() (*classifier.Matcher, error) {
	return classifier.LoadFile(cfg.Classifier.RulesPath)
}
