package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/config"
	"github.com/spec-kit/demand-service/internal/observability"
	"github.com/spec-kit/demand-service/internal/persistence"
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the demand-service database schema and seed users",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	for _, command := range []persistence.MigrationCommand{persistence.MigrateUp, persistence.MigrateDown, persistence.MigrateStatus} {
		rootCmd.AddCommand(migrationCmd(command))
	}
	rootCmd.AddCommand(seedUserCmd())
}

func migrationCmd(command persistence.MigrationCommand) *cobra.Command {
	short := map[persistence.MigrationCommand]string{
		persistence.MigrateUp:     "Apply all pending migrations",
		persistence.MigrateDown:   "Roll back the most recent migration",
		persistence.MigrateStatus: "Print the status of every migration",
	}[command]
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(env *environment) error {
				return persistence.Migrate(cmd.Context(), env.pg.PoolHandle(), command, env.logger)
			})
		},
	}
}

// environment holds the connections a command runs against.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func withDatabase(ctx context.Context, run func(env *environment) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	return run(&environment{cfg: cfg, logger: logger, pg: pg})
}
