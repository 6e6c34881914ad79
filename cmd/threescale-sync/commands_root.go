package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/section6nz/3scale-sync/internal/loader"
	"github.com/section6nz/3scale-sync/internal/metrics"
	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/reconcile"
	"github.com/section6nz/3scale-sync/internal/remote"
	"github.com/section6nz/3scale-sync/pkg/logging"
)

const accessTokenEnv = "THREESCALE_ACCESS_TOKEN"

var (
	adminURL           string
	accessToken        string
	configFile         string
	openAPIBaseDir     string
	logLevel           string
	insecureSkipVerify bool
	requestTimeout     time.Duration
	retryMax           int
)

var rootCmd = &cobra.Command{
	Use:           "threescale-sync",
	Short:         "Declarative 3scale product sync",
	Long:          "threescale-sync converges 3scale products, backends, applications and proxy settings onto a declarative YAML catalog",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.InitForCLI(level, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adminURL, "url", "", "3scale admin portal URL, e.g. https://acme-admin.3scale.net")
	rootCmd.PersistentFlags().StringVar(&accessToken, "access-token", "", "Admin API access token (default $"+accessTokenEnv+")")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "catalog.yaml", "Catalog file path")
	rootCmd.PersistentFlags().StringVar(&openAPIBaseDir, "openapi-basedir", ".", "Base directory for OpenAPI and policy files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().BoolVar(&insecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", remote.DefaultTimeout, "Per-request timeout")
	rootCmd.PersistentFlags().IntVar(&retryMax, "retries", remote.DefaultRetryMax, "Retries for read requests")

	registerSyncCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerDeleteCommand(rootCmd)
	registerVersionCommand(rootCmd)
}

// loadCatalog reads, validates and normalizes the catalog. With files set it
// also reads the OpenAPI documents and policy chains it references.
func loadCatalog(files bool) (*model.Catalog, error) {
	fmt.Printf("□ Loading catalog %s...\n", configFile)
	catalog, err := loader.LoadCatalog(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if files {
		fmt.Println("□ Reading OpenAPI and policy files...")
		if err := loader.ResolveFiles(catalog, openAPIBaseDir); err != nil {
			return nil, fmt.Errorf("failed to read referenced files: %w", err)
		}
	}
	return catalog, nil
}

func newEngine(environment string, rec *metrics.Recorder) (*reconcile.Engine, error) {
	token := accessToken
	if token == "" {
		token = os.Getenv(accessTokenEnv)
	}

	client, err := remote.NewClient(remote.Config{
		AdminURL:           adminURL,
		AccessToken:        token,
		InsecureSkipVerify: insecureSkipVerify,
		Timeout:            requestTimeout,
		RetryMax:           retryMax,
	}, remote.WithMetrics(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin API client: %w", err)
	}
	return reconcile.NewEngine(client, environment, reconcile.WithMetrics(rec)), nil
}
