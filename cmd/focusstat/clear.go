package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var (
	clearYes    bool
	clearBefore string
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete recorded statistics",
	Example: `  focusstat clear --before 2024-01-01
  focusstat clear --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var before time.Time
		if clearBefore != "" {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			before, err = time.ParseInLocation(time.DateOnly, clearBefore, loc)
			if err != nil {
				return fmt.Errorf("invalid --before date, want YYYY-MM-DD: %w", err)
			}
		}

		if !clearYes {
			prompt := "This will delete all tracking data. Are you sure? (yes/no): "
			if !before.IsZero() {
				prompt = fmt.Sprintf("This will delete statistics before %s. Are you sure? (yes/no): ", clearBefore)
			}
			ok, err := confirm(prompt)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
				return nil
			}
		}

		repo, db, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		if !before.IsZero() {
			n, err := repo.DeleteOldStats(before)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d bucket rows\n", n)
			return nil
		}

		if err := repo.Clear(); err != nil {
			return fmt.Errorf("failed to clear database: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Database cleared successfully")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	clearCmd.Flags().StringVar(&clearBefore, "before", "", "only delete buckets before this date (YYYY-MM-DD)")
}

// confirm asks on the terminal. Without one it refuses, so scripts must pass --yes.
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(os.Stdin.Fd()) {
		return false, fmt.Errorf("stdin is not a terminal, pass --yes to confirm")
	}

	fmt.Print(prompt)
	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y", nil
}
