package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/usdtvote/internal/infrastructure/config"
	"github.com/orris-inc/usdtvote/internal/infrastructure/database"
	httpRouter "github.com/orris-inc/usdtvote/internal/interfaces/http"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

var (
	env        string
	configPath string
	timeout    time.Duration
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass",
		Long:  `Re-verify every pending payment against the chain once, retry stuck vote credits, and exit.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Upper bound for the whole pass")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logger, false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := database.Init(ctx, &cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	// The scheduler is built but never started here.
	cfg.Sweeper.Enabled = false
	router, err := httpRouter.NewRouter(ctx, database.Get(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer router.Shutdown()

	return router.ReconcileOnce(ctx)
}
