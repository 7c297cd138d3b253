package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ylabs/internal/repository/mongodb"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the mongo indexes the API relies on",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		e, err := connect(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		names, err := mongodb.EnsureIndexes(ctx, e.db)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
