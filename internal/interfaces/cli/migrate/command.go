package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orris-inc/usdtvote/internal/infrastructure/config"
	"github.com/orris-inc/usdtvote/internal/infrastructure/database"
	"github.com/orris-inc/usdtvote/internal/infrastructure/migration"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

var (
	env        string
	configPath string
	steps      int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage the payment ledger schema: apply migrations, roll them back, or show the current version.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Apply all pending database migrations to bring the database schema up to date.`,
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		Long:  `Rollback a specified number of database migrations (mysql only).`,
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Display the current migration version and status of the database (mysql only).`,
		RunE:  runStatus,
	}
}

func initEnv(ctx context.Context) (*config.Config, logger.Interface, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logger, false); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := database.Init(ctx, &cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cfg, logger.NewLogger(), nil
}

func gooseStrategy(cfg *config.Config) (*migration.GooseStrategy, error) {
	if cfg.Database.IsSQLite() {
		return nil, fmt.Errorf("versioned migrations are only supported on mysql; sqlite is auto-migrated")
	}
	return migration.NewGooseStrategy("mysql").(*migration.GooseStrategy), nil
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, log, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	log.Infow("running up migrations", "environment", env, "driver", cfg.Database.Driver)

	if err := migration.NewManager(cfg.Database).Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
		return err
	}

	log.Infow("migrations completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	cfg, log, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	strategy, err := gooseStrategy(cfg)
	if err != nil {
		return err
	}

	log.Infow("running down migrations", "environment", env, "steps", steps)

	if err := strategy.MigrateDown(database.Get(), steps); err != nil {
		return fmt.Errorf("down migration failed: %w", err)
	}

	log.Infow("down migration completed successfully")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	strategy, err := gooseStrategy(cfg)
	if err != nil {
		return err
	}

	version, err := strategy.GetVersion(database.Get())
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Printf("\nMigration Status:\n")
	fmt.Printf("  Environment:     %s\n", env)
	fmt.Printf("  Current Version: %d\n\n", version)

	if err := strategy.Status(database.Get()); err != nil {
		return fmt.Errorf("failed to get detailed status: %w", err)
	}
	return nil
}
