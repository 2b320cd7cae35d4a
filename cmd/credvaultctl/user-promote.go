package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credvault/credvault/pkg/db"
	"github.com/credvault/credvault/pkg/server/store"
	gormstore "github.com/credvault/credvault/pkg/server/store/gorm"
)

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  `Manage registered users.`,
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote <username>",
	Short: "Give a user staff rights",
	Long: `Give a user staff rights.

Staff can read and modify every credential and are the only users who may
grant or revoke access.

Example:
  credvaultctl user promote alice`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := setStaff(cmd.Context(), args[0], true); err != nil {
			fail("Failed to promote %s: %v", args[0], err)
		}
		fmt.Printf("%s is now staff\n", args[0])
	},
}

var userDemoteCmd = &cobra.Command{
	Use:   "demote <username>",
	Short: "Remove a user's staff rights",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := setStaff(cmd.Context(), args[0], false); err != nil {
			fail("Failed to demote %s: %v", args[0], err)
		}
		fmt.Printf("%s is no longer staff\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPromoteCmd)
	userCmd.AddCommand(userDemoteCmd)
}

func setStaff(ctx context.Context, username string, staff bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := db.Connect(db.Config{})
	if err != nil {
		return err
	}

	err = gormstore.NewUserStore(database).SetStaff(ctx, username, staff)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("user %q not found", username)
	}
	return err
}
