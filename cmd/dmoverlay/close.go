package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var closeCmd = &cobra.Command{
	Use:   "close <channel-id>",
	Short: "Close the overlay for one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := client.CloseOverlay(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("closed", args[0])
		return nil
	},
}

var closeAllCmd = &cobra.Command{
	Use:   "close-all",
	Short: "Close every overlay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := client.CloseAll(ctx); err != nil {
			return err
		}
		fmt.Println("closed all overlays")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(closeAllCmd)
}
