package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/actionsum/focusstat/pkg/window"
)

var (
	classifyTitle   string
	classifyClass   string
	classifyProcess string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show the category a window with the given properties would get",
	Example: `  focusstat classify --class firefox --title "YouTube - Mozilla Firefox"
  focusstat classify --class kitty`,
	RunE: func(cmd *cobra.Command, args []string) error {
		matcher, err := loadMatcher()
		if err != nil {
			return err
		}

		info := window.WindowInfo{
			Name:        classifyTitle,
			Class:       classifyClass,
			ProcessName: classifyProcess,
		}
		fmt.Fprintln(cmd.OutOrStdout(), matcher.Classify(info))
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories known to the rules file",
	RunE: func(cmd *cobra.Command, args []string) error {
		matcher, err := loadMatcher()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Rules: %s (%d rules)\n", cfg.Classifier.RulesPath, matcher.Rules())
		fmt.Fprintln(out, strings.Join(matcher.Categories(), "\n"))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyTitle, "title", "", "window title")
	classifyCmd.Flags().StringVar(&classifyClass, "class", "", "WM_CLASS class or instance")
	classifyCmd.Flags().StringVar(&classifyProcess, "process", "", "process name")
}
