package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Altair29/J-GLOW-sub001/internal/archive"
	"github.com/Altair29/J-GLOW-sub001/internal/queue"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive worker operations",
}

var archiveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Consume the result stream and save runs to the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		a := archive.New(queue.New(rdb), repo, logger).WithConsumer(consumer)

		fmt.Printf("Archiver running. Consuming %s into %s...\n", queue.StreamResults, cfg.StoreURL)
		err = a.ConsumeResults(ctx)
		if errors.Is(err, context.Canceled) {
			fmt.Println("Archiver stopped.")
			return nil
		}
		return err
	},
}

func init() {
	archiveRunCmd.Flags().String("consumer", "archiver_1", "Consumer name within the archivers group")
	archiveCmd.AddCommand(archiveRunCmd)
}
