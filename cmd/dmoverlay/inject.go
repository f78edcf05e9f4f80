package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/model"
)

var (
	injectAuthorID string
	injectUsername string
	injectName     string
)

// injectCmd feeds a synthetic message event to the daemon. Handy for
// exercising a live setup before the host plugin is wired up.
var injectCmd = &cobra.Command{
	Use:    "inject <channel-id> <text>...",
	Short:  "Send a synthetic message event to the daemon",
	Hidden: true,
	Args:   cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		ev := host.MessageEvent{
			Message: &model.Message{
				ID:          fmt.Sprintf("inject-%d", time.Now().UnixNano()),
				ChannelID:   args[0],
				AuthorID:    injectAuthorID,
				Username:    injectUsername,
				DisplayName: injectName,
				Content:     strings.Join(args[1:], " "),
				Timestamp:   time.Now(),
			},
		}
		if err := client.Inject(ctx, ev); err != nil {
			return err
		}
		fmt.Println("injected")
		return nil
	},
}

func init() {
	injectCmd.Flags().StringVar(&injectAuthorID, "author-id", "0", "author ID for the synthetic message")
	injectCmd.Flags().StringVar(&injectUsername, "username", "tester", "author username")
	injectCmd.Flags().StringVar(&injectName, "display-name", "", "author display name")
	rootCmd.AddCommand(injectCmd)
}
