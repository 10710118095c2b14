package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/usdtvote/internal/interfaces/cli/migrate"
	"github.com/orris-inc/usdtvote/internal/interfaces/cli/reconcile"
	"github.com/orris-inc/usdtvote/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "usdtvote",
		Short: "usdtvote - USDT payment verification for paid votes",
		Long:  `usdtvote verifies USDT deposits on BSC and TRON, records them in a payment ledger, and credits votes exactly once.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		reconcile.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
