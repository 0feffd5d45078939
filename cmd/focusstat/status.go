package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/focusstat/internal/daemon"
	"github.com/actionsum/focusstat/internal/reporter"
	"github.com/actionsum/focusstat/internal/resolver"
	"github.com/actionsum/focusstat/pkg/detector"
	"github.com/actionsum/focusstat/pkg/integrations/process"
	"github.com/actionsum/focusstat/pkg/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status, the last run and the current window",
	RunE: func(cmd *cobra.Command, args []string) error {
		dm := daemon.New(cfg.Daemon.PIDFile)

		running, pid, err := dm.IsRunning()
		if err != nil {
			return fmt.Errorf("failed to check daemon status: %w", err)
		}

		if !running {
			fmt.Println("Status: Not running")
		} else {
			fmt.Printf("Status: Running (PID: %d)\n", pid)
			fmt.Printf("Bucket Width: %v, Flush Interval: %v\n", cfg.Stats.BucketWidth, cfg.Stats.FlushInterval)
		}

		if err := showLastRun(); err != nil {
			fmt.Printf("\nCould not read database: %v\n", err)
		}

		// current window is shown even when the daemon is not running
		showCurrentWindow()
		return nil
	},
}

func showLastRun() error {
	repo, db, err := openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Database: %s\n", db.Path())

	run, err := repo.GetLatestRun()
	if err != nil {
		return err
	}
	if run != nil {
		errorCount, err := repo.CountErrorLogs(run.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\nLast Run: %s\n", run.ID)
		fmt.Printf("  Started: %s\n", run.StartedAt.Format(time.DateTime))
		if run.StoppedAt != nil {
			fmt.Printf("  Stopped: %s\n", run.StoppedAt.Format(time.DateTime))
		}
		fmt.Printf("  Display: %s\n", run.DisplayServer)
		fmt.Printf("  Flushes: %d (%s persisted)\n", run.Flushes,
			utils.FormatRoundedUnit(int64(time.Duration(run.Tracked).Seconds())))
		fmt.Printf("  Errors: %d\n", errorCount)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	report, err := reporter.New(repo, loc).GenerateReport("day", false)
	if err != nil {
		return err
	}
	fmt.Printf("\nToday: %s across %d categories\n",
		utils.FormatRoundedUnit(int64(report.TotalSeconds)), len(report.Categories))
	return nil
}

func showCurrentWindow() {
	display, err := detector.New(cfg.Tracker.Display, false)
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return
	}
	defer display.Close()

	matcher, err := loadMatcher()
	if err != nil {
		fmt.Printf("\nCould not load rules: %v\n", err)
		return
	}

	active, err := display.ActiveWindow()
	if err != nil {
		fmt.Printf("\nCould not read active window: %v\n", err)
		return
	}

	res := resolver.New(display, process.NewLookup(), cfg.Tracker.ResolveTimeout)
	info := res.Resolve(context.Background(), active)

	fmt.Printf("\nCurrent Window:\n")
	fmt.Printf("  Title: %s\n", info.Name)
	fmt.Printf("  Class: %s (%s)\n", info.Class, info.Instance)
	if info.ProcessName != "" {
		fmt.Printf("  Process: %s (PID %d)\n", info.ProcessName, info.PID)
	}
	fmt.Printf("  Category: %s\n", matcher.Classify(info))
}
