package commands

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EgorLis/event-gallery/internal/app"
)

var purgeLimit int

var purgeCmd = &cobra.Command{
	Use:   "purge-expired",
	Short: "Delete sessions whose retention window has passed",
	Long: `purge-expired deletes up to --limit expired sessions together with their
photos and stored objects. Reads never delete anything on their own; run this
from cron when storage should be reclaimed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if purgeLimit <= 0 {
			return fmt.Errorf("--limit must be positive, got %d", purgeLimit)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Build(ctx)
		if err != nil {
			return fmt.Errorf("build app: %w", err)
		}
		rep, err := a.PurgeExpired(ctx, purgeLimit)
		if err != nil {
			return err
		}
		out, _ := json.Marshal(rep)
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	purgeCmd.Flags().IntVar(&purgeLimit, "limit", 500, "maximum number of sessions to delete")
}
