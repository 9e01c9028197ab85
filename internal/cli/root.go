package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Altair29/J-GLOW-sub001/internal/archive"
	"github.com/Altair29/J-GLOW-sub001/internal/config"
	"github.com/Altair29/J-GLOW-sub001/internal/content"
	"github.com/Altair29/J-GLOW-sub001/internal/queue"
	"github.com/Altair29/J-GLOW-sub001/internal/session"
	"github.com/Altair29/J-GLOW-sub001/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// tuiAnnotation marks commands that own the terminal; they log nowhere
// unless --verbose is set.
const tuiAnnotation = "tui"

var (
	cfg     *config.Config
	logger  = zap.NewNop()
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "jglow",
		Short: "J-GLOW hiring simulations: play, automate and archive runs",
		Long: `jglow runs the J-GLOW foreign-worker hiring simulations in the terminal.

Play a pack:
  jglow play management

Check a pack's balance:
  jglow auto management --strategy cautious --runs 100

Look up a shared result:
  jglow results show <token>`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[tuiAnnotation] != "" && !verbose {
				return nil
			}
			l, err := newLogger()
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(packsCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(autoCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(queueCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse JGLOW_LOG_LEVEL: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func loadPacks() (*content.Registry, error) {
	reg, err := content.Builtin()
	if err != nil {
		return nil, err
	}
	if cfg.ContentDir != "" {
		if err := reg.LoadDir(cfg.ContentDir); err != nil {
			return nil, fmt.Errorf("load packs from %s: %w\nCheck JGLOW_CONTENT_DIR", cfg.ContentDir, err)
		}
	}
	return reg, nil
}

func openStore(ctx context.Context) (store.Repository, error) {
	repo, err := store.Open(ctx, cfg.StoreURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w\nSet JGLOW_STORE_URL environment variable", err)
	}
	return repo, nil
}

func connectRedis() (*redis.Client, error) {
	rdb, err := queue.ConnectRedis(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet JGLOW_REDIS_URL environment variable", err)
	}
	return rdb, nil
}

// newPublisher returns the configured publisher and a func releasing the
// connection behind it.
func newPublisher(ctx context.Context) (session.Publisher, func(), error) {
	switch cfg.PublishMode {
	case config.PublishStream:
		rdb, err := connectRedis()
		if err != nil {
			return nil, nil, err
		}
		return archive.StreamPublisher{Stream: queue.New(rdb)}, func() { rdb.Close() }, nil
	default:
		repo, err := openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return archive.DirectPublisher{Repo: repo}, func() { repo.Close() }, nil
	}
}

func usesPostgres() bool {
	return strings.HasPrefix(cfg.StoreURL, "postgres://") || strings.HasPrefix(cfg.StoreURL, "postgresql://")
}

func migrationsDir() string {
	return filepath.Join(cfg.ProjectRoot, "migrations")
}
