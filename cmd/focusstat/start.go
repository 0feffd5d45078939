package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/actionsum/focusstat/internal/daemon"
	"github.com/actionsum/focusstat/internal/models"
	"github.com/actionsum/focusstat/internal/tracker"
	"github.com/actionsum/focusstat/pkg/detector"
)

const childEnv = "FOCUSSTAT_DAEMON_CHILD"

var foreground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tracking daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		dm := daemon.New(cfg.Daemon.PIDFile)
		running, pid, err := dm.IsRunning()
		if err != nil {
			return fmt.Errorf("failed to check daemon status: %w", err)
		}
		if running {
			return fmt.Errorf("daemon is already running (PID: %d)", pid)
		}

		if !foreground && os.Getenv(childEnv) != "1" {
			return daemonize()
		}

		return runDaemon(dm)
	},
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run in the foreground and log to stderr")
}

func runDaemon(dm *daemon.Daemon) error {
	if !foreground {
		logFile, err := daemon.RedirectLog(cfg.Daemon.LogFile)
		if err == nil {
			defer logFile.Close()
		}
	}

	repo, db, err := openRepository()
	if err != nil {
		log.Printf("Failed to open database: %v", err)
		return err
	}
	defer db.Close()

	matcher, err := loadMatcher()
	if err != nil {
		log.Printf("Failed to load rules: %v", err)
		return err
	}
	log.Printf("Loaded %d rules for categories %v", matcher.Rules(), matcher.Categories())

	display, err := detector.New(cfg.Tracker.Display, cfg.Tracker.TrackTitleChanges)
	if err != nil {
		log.Printf("Failed to connect to display: %v", err)
		return err
	}
	log.Printf("Display connection initialized: %s", display.GetDisplayServer())

	if err := dm.WritePID(); err != nil {
		display.Close()
		return err
	}
	defer dm.RemovePID()

	run := &models.Run{
		ID:            uuid.NewString(),
		StartedAt:     time.Now(),
		DisplayServer: display.GetDisplayServer(),
	}
	if err := repo.CreateRun(run); err != nil {
		display.Close()
		return err
	}

	svc, err := tracker.NewService(cfg, display, matcher, repo, run.ID)
	if err != nil {
		display.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting %s daemon, run %s", appName, run.ID)
	log.Printf("Configuration:\n%s", cfg.String())

	runErr := svc.Start(ctx)
	if err := repo.FinishRun(run.ID, time.Now()); err != nil {
		log.Printf("Failed to finish run: %v", err)
	}
	if runErr != nil {
		log.Printf("Tracker error: %v", runErr)
		return runErr
	}

	log.Println("Daemon stopped successfully")
	return nil
}

func daemonize() error {
	env := append(os.Environ(), childEnv+"=1")

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Create new session
		},
	}

	executable, err := os.Executable()
	if err != nil {
		executable = os.Args[0]
	}

	process, err := os.StartProcess(executable, os.Args, procAttr)
	if err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	fmt.Printf("Daemon started successfully (PID: %d)\n", process.Pid)
	fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
	return process.Release()
}
