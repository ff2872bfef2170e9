// Package cmd defines and implements the CLI commands for the devfeed executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/app"
	"github.com/JakeFAU/devfeed-crawler/internal/config"
	"github.com/JakeFAU/devfeed-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can swap in a
// container built from a hand-written config.
var newApp = func(ctx context.Context, cfgFile string) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return app.New(ctx, cfg, logger)
}

// NewRootCmd creates and configures the root command. The container built by
// PersistentPreRunE is stored in built so the caller can close it whether or
// not the command succeeded.
func NewRootCmd(built **app.App) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "devfeed",
		Short: "Collects developer events, job postings and tech blog articles.",
		Long: `devfeed ingests three public sources into their stores: the community
developer event list, a job board search and a set of company tech blog
feeds. Each run merges fresh records with what is already stored and spends
a bounded number of AI enrichment calls on the records that still need them.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if built != nil {
				*built = appInstance
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables override it")

	cmd.AddCommand(
		newSourceCmd(eventsSource),
		newSourceCmd(jobsSource),
		newSourceCmd(blogsSource),
		newMigrateCmd(),
		newServeCmd(),
	)
	return cmd
}

// Execute runs the root command with ctx and shuts the services down
// afterwards.
func Execute(ctx context.Context) error {
	var appInstance *app.App
	err := NewRootCmd(&appInstance).ExecuteContext(ctx)
	if appInstance != nil {
		appInstance.Close()
		_ = appInstance.Logger().Sync()
	}
	return err
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
