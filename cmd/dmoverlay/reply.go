package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var replyCmd = &cobra.Command{
	Use:   "reply <channel-id> <text>...",
	Short: "Send a reply through an open overlay's conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		text := strings.Join(args[1:], " ")
		ok, err := client.Reply(ctx, args[0], text)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "rejected")
			os.Exit(1)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replyCmd)
}
