package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/devfeed-crawler/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the article table schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(postgres.Up), string(postgres.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, err := postgres.ParseDirection(args[0])
			if err != nil {
				return err
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := postgres.Migrate(appInstance.Config().DB.DSN, direction, appInstance.Logger()); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			return nil
		},
	}
}
