package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stitch/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			notifier := ctx.notifier()
			if notifications.IsNoop(notifier) {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications are disabled; set notifications.ntfy_topic or notifications.desktop")
				return nil
			}
			if err := notifier.Notify(cmd.Context(), notifications.TestMessage()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
