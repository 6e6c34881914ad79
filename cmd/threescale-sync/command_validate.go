package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/section6nz/3scale-sync/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the catalog without contacting 3scale",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateCatalog()
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)
}

func validateCatalog() error {
	catalog, err := loadCatalog(true)
	if err != nil {
		return err
	}
	fmt.Println("✓ Catalog is valid against the schema")

	fmt.Println("□ Running pre-flight checks...")
	if err := validate.Catalog(catalog); err != nil {
		return fmt.Errorf("pre-flight validation failed: %w", err)
	}

	fmt.Printf("✓ All validation passed (%d products)\n", len(catalog.Products))
	return nil
}
