// Package main provides the CLI entrypoint for dmoverlay.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/neozepron/dmOverlay/internal/bus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global state
var (
	globalOpts struct {
		verbose bool
	}
	logger *slog.Logger

	// client talks to the running dmoverlayd instance
	client *bus.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dmoverlay",
	Short: "Control the dmoverlayd DM overlay daemon",
	Long: `dmoverlay controls a running dmoverlayd instance over D-Bus.

dmoverlayd shows always-on-top overlay windows for incoming direct
messages and lets you reply without switching to the chat client. This
CLI inspects and drives those overlays from the terminal.

Running dmoverlay without a subcommand launches the interactive monitor.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		client, err = bus.NewClient()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		if err := client.Ping(); err != nil {
			return fmt.Errorf("is dmoverlayd running? %w", err)
		}
		return nil
	},
	// Default to the monitor when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func main() {
	Execute()
}
