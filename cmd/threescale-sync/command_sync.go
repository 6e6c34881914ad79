package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/section6nz/3scale-sync/internal/metrics"
	"github.com/section6nz/3scale-sync/internal/render"
	"github.com/section6nz/3scale-sync/internal/runner"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

var (
	syncParallel    int
	syncMetricsFile string
	syncReportFile  string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Converge the control plane onto the catalog",
	Long:  "Validate the catalog, then create, update and promote every declared product. Failed products do not stop the others.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return syncCatalog(cmd.Context())
	},
}

func registerSyncCommand(root *cobra.Command) {
	root.AddCommand(syncCmd)

	syncCmd.Flags().IntVarP(&syncParallel, "parallel", "p", 1, "Number of products synced concurrently")
	syncCmd.Flags().StringVar(&syncMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	syncCmd.Flags().StringVarP(&syncReportFile, "report", "o", "", "Write the run report to this file (json or yaml)")
}

func syncCatalog(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	fmt.Printf("□ Run %s\n", runID)

	catalog, err := loadCatalog(true)
	if err != nil {
		return err
	}

	rec := metrics.New()
	engine, err := newEngine(catalog.Environment, rec)
	if err != nil {
		return err
	}

	fmt.Printf("□ Syncing %d products to %s...\n", len(catalog.Products), catalog.Environment)
	report, err := runner.NewRunner(engine, syncParallel, os.Stdout).Run(ctx, catalog)
	if syncerr.IsValidation(err) {
		fmt.Println("✗ Catalog failed pre-flight validation, nothing was changed")
	}
	if err != nil {
		return err
	}

	summary := render.Summarize(runID, report)
	render.WriteTable(os.Stdout, summary)

	if syncReportFile != "" {
		if err := render.WriteFile(summary, syncReportFile); err != nil {
			return err
		}
		fmt.Printf("✓ Report written to %s\n", syncReportFile)
	}
	if syncMetricsFile != "" {
		if err := rec.WriteTextfile(syncMetricsFile); err != nil {
			return err
		}
		fmt.Printf("✓ Metrics written to %s\n", syncMetricsFile)
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d products failed to sync", len(failed), len(report.Products))
	}
	fmt.Println("✓ Sync complete")
	return nil
}
