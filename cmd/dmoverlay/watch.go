package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream overlay open/close events to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		events, err := client.Subscribe(ctx)
		if err != nil {
			return err
		}

		for ev := range events {
			stamp := time.Now().Format(time.TimeOnly)
			if ev.Opened {
				fmt.Printf("%s opened  %s (%s)\n", stamp, ev.ChannelID, ev.DisplayName)
			} else {
				fmt.Printf("%s closed  %s\n", stamp, ev.ChannelID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
