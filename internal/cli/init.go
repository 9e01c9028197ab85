package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Altair29/J-GLOW-sub001/internal/config"
	"github.com/Altair29/J-GLOW-sub001/internal/db"
	"github.com/Altair29/J-GLOW-sub001/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the run store and result stream",
	Long:  "Initialize storage: PostgreSQL migrations or the SQLite file, and the Redis result stream when publishing via stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		skipRedis, _ := cmd.Flags().GetBool("skip-redis")

		if usesPostgres() {
			fmt.Println("Connecting to PostgreSQL...")
			pool, err := db.Connect(ctx, cfg.StoreURL)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer pool.Close()

			fmt.Println("Running migrations...")
			applied, err := db.Migrate(ctx, pool, migrationsDir())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			for _, f := range applied {
				fmt.Printf("  applied %s\n", filepath.Base(f))
			}
			logger.Info("Migrations applied", zap.Int("files", len(applied)))
		} else {
			repo, err := openStore(ctx)
			if err != nil {
				return err
			}
			repo.Close()
			fmt.Printf("Run store ready at %s\n", cfg.StoreURL)
		}

		if cfg.PublishMode == config.PublishStream && !skipRedis {
			fmt.Println("Connecting to Redis...")
			rdb, err := connectRedis()
			if err != nil {
				return fmt.Errorf("redis connection failed: %w", err)
			}
			defer rdb.Close()

			if err := queue.New(rdb).EnsureStream(ctx); err != nil {
				return fmt.Errorf("redis stream setup failed: %w", err)
			}
			fmt.Printf("Redis stream %s ready (group %s)\n", queue.StreamResults, queue.GroupArchivers)
		}

		fmt.Println("\njglow initialized.")
		fmt.Println("Next steps:")
		fmt.Println("  1. Run: jglow packs list")
		fmt.Println("  2. Run: jglow play management")
		if cfg.PublishMode == config.PublishStream {
			fmt.Println("  3. Run: jglow archive run   (keeps results flowing into the store)")
		}
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("skip-redis", false, "Do not create the Redis result stream")
}
