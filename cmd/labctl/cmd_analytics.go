package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ylabs/internal/config"
	"ylabs/internal/database"
	"ylabs/internal/repository/postgres"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Maintain the postgres analytics sink",
}

var analyticsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete analytics events past the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		e, err := connect(ctx)
		if err != nil {
			return err
		}
		defer e.close()
		if e.cfg.AnalyticsSink != config.SinkPostgres {
			return errors.New("purge needs ANALYTICS_SINK=postgres; the mongo sink expires events with a TTL index")
		}
		db, err := database.NewPostgres(ctx, database.PostgresConfig{
			DSN:             e.cfg.DatabaseURL,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxIdle:     e.cfg.DBConnMaxIdle,
			ConnMaxLifetime: e.cfg.DBConnMaxLife,
		}, e.logger)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := postgres.NewAnalyticsRepository(db).Purge(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d events\n", n)
		return nil
	},
}

func init() {
	analyticsCmd.AddCommand(analyticsPurgeCmd)
}
