package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/section6nz/3scale-sync/internal/syncerr"
)

const testCatalog = `
environment: dev
products:
  - name: Pet Store
    shortName: pet-store
    version: 1
    openAPIPath: pets.yaml
    api:
      publicBasePath: /pets
      authentication:
        authType: app_id_key
        credentialsLocation: headers
    backends:
      - id: pets
        privateBaseURL: https://pets.internal.example.com
`

const testOpenAPI = `
openapi: 3.0.0
paths:
  /pets:
    get: {}
`

func withCatalog(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pets.yaml"), []byte(testOpenAPI), 0o644))

	prevConfig, prevBase := configFile, openAPIBaseDir
	configFile = filepath.Join(dir, "catalog.yaml")
	openAPIBaseDir = dir
	t.Cleanup(func() {
		configFile, openAPIBaseDir = prevConfig, prevBase
	})
}

func TestValidateCatalog(t *testing.T) {
	withCatalog(t, testCatalog)
	require.NoError(t, validateCatalog())
}

func TestValidateCatalogRejectsDuplicates(t *testing.T) {
	dup := testCatalog + strings.Replace(testCatalog[strings.Index(testCatalog, "  - name"):], "Pet Store", "Pet Store 2", 1)
	withCatalog(t, dup)

	err := validateCatalog()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate product shortName")
}

func TestSyncStopsOnInvalidCatalog(t *testing.T) {
	dup := testCatalog + strings.Replace(testCatalog[strings.Index(testCatalog, "  - name"):], "Pet Store", "Pet Store 2", 1)
	withCatalog(t, dup)

	prevURL, prevToken := adminURL, accessToken
	t.Cleanup(func() { adminURL, accessToken = prevURL, prevToken })
	// Validation fails before the unreachable host is contacted.
	adminURL, accessToken = "https://admin.invalid", "token"

	err := syncCatalog(context.Background())
	require.Error(t, err)
	assert.True(t, syncerr.IsValidation(err))
}

func TestDeleteAbortsWithoutConfirmation(t *testing.T) {
	withCatalog(t, testCatalog)
	deleteYes = false

	// No admin URL is configured, so reaching the API client would fail.
	require.NoError(t, deleteCatalog(context.Background(), strings.NewReader("n\n")))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), "continue?"))
		})
	}
}

func TestNewEngineRequiresURL(t *testing.T) {
	prevURL, prevToken := adminURL, accessToken
	t.Cleanup(func() { adminURL, accessToken = prevURL, prevToken })

	adminURL, accessToken = "", "token"
	_, err := newEngine("dev", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin URL is required")
}
