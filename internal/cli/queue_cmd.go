package cli

import (
	"context"
	"fmt"

	"github.com/Altair29/J-GLOW-sub001/internal/queue"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Result stream management",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the result stream backlog in Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx := context.Background()
		q := queue.New(rdb)

		stats, err := q.Status(ctx)
		if err != nil {
			return fmt.Errorf("queue status: %w", err)
		}

		fmt.Printf("Queue Status:\n")
		fmt.Printf("  %s: %d entries\n", queue.StreamResults, stats.Length)
		fmt.Printf("  %s:  %d pending (delivered, not archived)\n", queue.GroupArchivers, stats.Pending)
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueStatusCmd)
}
