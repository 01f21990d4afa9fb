package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leadgrid/gatekeeper/internal/core/config"
	"github.com/leadgrid/gatekeeper/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show failure bay and job queue status",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	rows, err := db.QueryContext(ctx, `
		SELECT bay, status, COUNT(*)
		FROM failure_records
		GROUP BY bay, status
		ORDER BY bay, status`)
	if err != nil {
		slog.Error("Failed to query failure records", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "BAY\tSTATUS\tCOUNT")

	for rows.Next() {
		var bay, status string
		var count int64
		if err := rows.Scan(&bay, &status, &count); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", bay, status, count)
	}
	_ = w.Flush()

	jobRows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM resume_jobs
		GROUP BY status
		ORDER BY status`)
	if err != nil {
		slog.Error("Failed to query jobs", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = jobRows.Close()
	}()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "JOB STATUS\tCOUNT")

	for jobRows.Next() {
		var status string
		var count int64
		if err := jobRows.Scan(&status, &count); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", status, count)
	}
	_ = w.Flush()
}
