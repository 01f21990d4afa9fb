package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadgrid/gatekeeper/internal/core/config"
	"github.com/leadgrid/gatekeeper/internal/infra/storage/postgres"
)

var resetBudgetCmd = &cobra.Command{
	Use:   "reset-budget [company_id]",
	Short: "Reset the spend counters for a company",
	Args:  cobra.ExactArgs(1),
	Run:   runResetBudget,
}

func init() {
	rootCmd.AddCommand(resetBudgetCmd)
}

func runResetBudget(cmd *cobra.Command, args []string) {
	companyID := args[0]

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	// Direct SQL keeps the override simple for an operator tool.
	query := `
		UPDATE company_budgets
		SET spent_day = 0, spent_week = 0, spent_month = 0,
			day_start = now(), week_start = now(), month_start = now()
		WHERE company_id = $1`
	res, err := db.ExecContext(ctx, query, companyID)
	if err != nil {
		slog.Error("Failed to reset budget", "error", err)
		os.Exit(1)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		fmt.Printf("No budget found for company %s\n", companyID)
		return
	}
	fmt.Printf("Successfully reset budget for company %s\n", companyID)
}
