package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/section6nz/3scale-sync/internal/model"
)

const catalogYAML = `
environment: dev
products:
  - name: Pet Store
    shortName: pet-store
    description: Pets
    version: 3
    openAPIPath: pets.yaml
    policies: policies/pets.json
    api:
      publicBasePath: /pets
      authentication:
        authType: oidc
        issuerURL: https://sso.example.com/auth/realms/api
        issuerType: keycloak
        credentialsLocation: headers
    backends:
      - id: pets
        privateBaseURL: https://pets.internal.example.com
    applications:
      - account: alice
      - account: bob
        name: bob-app
        client_id: bob
        client_secret: s3cret
    mappings:
      - method: get
        pattern: /health
`

const petsOpenAPI = `
swagger: "2.0"
paths:
  /pets:
    get: {}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "catalog.yaml", catalogYAML)
	writeFile(t, dir, "pets.yaml", petsOpenAPI)
	writeFile(t, dir, "policies/pets.json", `[{"name": "apicast", "version": "builtin", "configuration": {}}]`)

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.Products, 1)

	p := catalog.Products[0]
	assert.Equal(t, "pet_store", p.SystemName)
	assert.Equal(t, model.StringList{"pets.yaml"}, p.OpenAPIPath)
	assert.Equal(t, "/", p.Backends[0].Path)
	assert.Equal(t, "dev_pet_store_v3_Application", p.Applications[0].Name)
	assert.Equal(t, "s3cret", p.Applications[1].ClientSecret)
	assert.Equal(t, "GET", p.Mappings[0].Method)

	require.NoError(t, ResolveFiles(catalog, dir))
	p = catalog.Products[0]
	assert.Equal(t, []model.MappingSpec{{Method: "GET", Pattern: "/pets$"}}, p.OpenAPIMappings)
	require.NotNil(t, p.PolicyChain)
	assert.JSONEq(t, `[{"name":"apicast","version":"builtin","configuration":{}}]`, string(p.PolicyChain.Document))
}

func TestLoadCatalogRejectsSchemaViolations(t *testing.T) {
	_, err := ParseCatalog([]byte("environment: dev\nproducts:\n  - name: a\n"))
	assert.ErrorContains(t, err, "schema")
}

func TestLoadPolicyChainRequiresArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.json", `{"name": "apicast"}`)

	_, err := LoadPolicyChain(path)
	assert.ErrorContains(t, err, "JSON array")
}

func TestResolveFilesMissingOpenAPI(t *testing.T) {
	catalog := &model.Catalog{Environment: "dev", Products: []model.ProductSpec{{Name: "Pets", OpenAPIPath: model.StringList{"nope.yaml"}}}}
	err := ResolveFiles(catalog, t.TempDir())
	assert.ErrorContains(t, err, "product Pets")
}
