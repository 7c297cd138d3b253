// Command labctl runs maintenance tasks against the ylabs stores.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"ylabs/internal/config"
	"ylabs/internal/database"
	"ylabs/internal/observability"
)

var (
	envFile string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "labctl",
	Short:         "Maintenance commands for the ylabs backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "deadline for the whole command")
	rootCmd.AddCommand(indexesCmd, userCmd, analyticsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "labctl:", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: loaded config, a logger and a mongo
// handle that must be released with close.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	client *mongo.Client
	db     *mongo.Database
}

func (e *env) close() {
	_ = e.client.Disconnect(context.Background())
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logger := observability.NewLoggerTo(os.Stderr, cfg.LogLevel)
	client, db, err := database.NewMongo(ctx, database.MongoConfig{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, client: client, db: db}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
