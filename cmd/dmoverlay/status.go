package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusOpts struct {
	jsonOut bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the active overlay windows",
	Long: `List the overlays currently on screen, most recently updated first.

With --json the raw snapshot is printed, suitable for scripting or a
Waybar custom module.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.jsonOut, "json", false,
		"Output the snapshot as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	infos, err := client.ListOverlays(ctx)
	if err != nil {
		return err
	}

	if statusOpts.jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Println("no active overlays")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tNAME\tMESSAGES\tUPDATED\tPINNED")
	for _, info := range infos {
		pinned := ""
		if info.Pinned {
			pinned = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			info.ChannelID, info.DisplayName, info.MessageCount,
			humanize.Time(info.LastUpdated), pinned)
	}
	return w.Flush()
}
