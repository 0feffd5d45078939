package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/actionsum/focusstat/internal/focus"
	"github.com/actionsum/focusstat/internal/resolver"
	"github.com/actionsum/focusstat/pkg/detector"
	"github.com/actionsum/focusstat/pkg/integrations/process"
	"github.com/actionsum/focusstat/pkg/utils"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print focus changes and their category until interrupted",
	Long: `watch follows the same event stream the daemon uses and prints every
focus change with the category it would be attributed to. Nothing is
recorded, so it can run next to the daemon while editing rules.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		matcher, err := loadMatcher()
		if err != nil {
			return err
		}

		display, err := detector.New(cfg.Tracker.Display, cfg.Tracker.TrackTitleChanges)
		if err != nil {
			return err
		}
		defer display.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res := resolver.New(display, process.NewLookup(), cfg.Tracker.ResolveTimeout)
		stream := focus.NewStream(display, focus.WithTitleChanges(cfg.Tracker.TrackTitleChanges))
		defer stream.Stop()

		fmt.Printf("Watching %s focus changes, press Ctrl+C to stop\n\n", display.GetDisplayServer())

		for {
			ev, err := stream.Next(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, focus.ErrStopped) {
					return nil
				}
				return err
			}

			info := res.Resolve(ctx, ev.Window)
			fmt.Printf("[%s] %-5s 0x%08x %-20s | %-40s -> %s\n",
				ev.Time.Format("15:04:05"),
				ev.Kind,
				uint32(ev.Window),
				utils.Truncate(info.Class, 20),
				utils.Truncate(info.Name, 40),
				matcher.Classify(info),
			)
		}
	},
}
