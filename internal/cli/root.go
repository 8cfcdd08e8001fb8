// Package cli implements the webpager command line interface.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// CLI wires the webpager commands together.
type CLI struct {
	rootCmd *cobra.Command
	version string

	verbose     bool
	silent      bool
	initialized bool
}

// New builds the command tree.
func New(version string) *CLI {
	c := &CLI{version: version}

	c.rootCmd = &cobra.Command{
		Use:     "webpager",
		Short:   "Find next page links in HTML listings",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.initApp()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	c.rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose/debug output")
	c.rootCmd.PersistentFlags().BoolVarP(&c.silent, "silent", "s", false, "Suppress all logging")

	defaultHelp := c.rootCmd.HelpFunc()
	c.rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		c.initApp()
		defaultHelp(cmd, args)
	})

	c.rootCmd.AddCommand(
		c.newRunCommand(),
		c.newExtractCommand(),
		c.newFitCommand(),
		c.newUpCommand(),
	)
	return c
}

// Execute runs the CLI.
func (c *CLI) Execute() error {
	return c.rootCmd.Execute()
}

func (c *CLI) initApp() {
	if c.initialized {
		return
	}
	c.initialized = true

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	if c.silent {
		level = slog.Level(100)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
