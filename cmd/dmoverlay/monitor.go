package main

import (
	"github.com/spf13/cobra"

	"github.com/neozepron/dmOverlay/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive view of the active overlays",
	Long: `Monitor opens a terminal UI that lists the daemon's active overlays,
refreshing every couple of seconds. Overlays can be closed and replied
to directly from the list.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	return tui.Run(client)
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
