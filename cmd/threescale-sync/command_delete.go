package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/section6nz/3scale-sync/internal/render"
	"github.com/section6nz/3scale-sync/internal/runner"
	"github.com/section6nz/3scale-sync/internal/validate"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete every product declared in the catalog",
	Long:  "Remove the catalog's products and their backend usages, then the declared backends. Applications and plans go away with their product on the control plane. Backends still used by other products are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return deleteCatalog(ctx, os.Stdin)
	},
}

func registerDeleteCommand(root *cobra.Command) {
	root.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

func deleteCatalog(ctx context.Context, in io.Reader) error {
	catalog, err := loadCatalog(false)
	if err != nil {
		return err
	}
	if err := validate.Catalog(catalog); err != nil {
		return fmt.Errorf("pre-flight validation failed: %w", err)
	}

	if !deleteYes && !confirm(in, fmt.Sprintf("Delete %d products from %s?", len(catalog.Products), catalog.Environment)) {
		fmt.Println("□ Aborted")
		return nil
	}

	engine, err := newEngine(catalog.Environment, nil)
	if err != nil {
		return err
	}

	report := runner.NewRunner(engine, 1, os.Stdout).Delete(ctx, catalog)
	render.WriteTable(os.Stdout, render.Summarize("", report))

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d products failed to delete", len(failed), len(report.Products))
	}
	fmt.Println("✓ Delete complete")
	return nil
}

func confirm(in io.Reader, question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
