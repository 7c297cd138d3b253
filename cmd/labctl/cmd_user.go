package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ylabs/internal/app"
	"ylabs/internal/domain/user"
	"ylabs/internal/repository/mongodb"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userConfirmCmd = &cobra.Command{
	Use:   "confirm <netid>",
	Short: "Confirm a user and publish their listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd, func(s *app.UserService) (*user.User, error) {
			return s.Confirm(cmd.Context(), args[0])
		})
	},
}

var userUnconfirmCmd = &cobra.Command{
	Use:   "unconfirm <netid>",
	Short: "Unconfirm a user and hide their listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd, func(s *app.UserService) (*user.User, error) {
			return s.Unconfirm(cmd.Context(), args[0])
		})
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <netid>",
	Short: "Delete a user after writing a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd, func(s *app.UserService) (*user.User, error) {
			return s.Delete(cmd.Context(), args[0])
		})
	},
}

func init() {
	userCmd.AddCommand(userConfirmCmd, userUnconfirmCmd, userDeleteCmd)
}

// withUsers builds a UserService over the configured database and prints
// the user fn returns.
func withUsers(cmd *cobra.Command, fn func(*app.UserService) (*user.User, error)) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	var tx app.Transactor = app.Sequential{}
	if e.cfg.MongoTransactions {
		tx = mongodb.NewTransactor(e.client)
	}
	users := mongodb.NewUserRepository(e.db)
	service := app.NewUserService(
		users,
		mongodb.NewUserBackupRepository(e.db),
		mongodb.NewListingRepository(e.db, e.cfg.SearchIndex),
		app.NewOwnershipService(users, nil, e.logger),
		tx,
		nil,
	)
	account, err := fn(service)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
