package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `
environment: dev
products:
  - name: Pet Store
    shortName: pets
    version: 1
    openAPIPath: [pets.yaml, admin.json]
    api:
      publicBasePath: /pets
      authentication:
        authType: oidc
        issuerURL: https://sso.example.com/auth/realms/api
        issuerType: keycloak
        credentialsLocation: headers
        oidcFlows:
          standardFlow: true
    backends:
      - id: pets
        privateBaseURL: https://pets.internal.example.com
        path: /
    applications:
      - account: alice
    mappings:
      - method: GET
        pattern: /health
`

func TestValidateCatalog(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid", doc: validCatalog},
		{name: "single openAPIPath", doc: "environment: dev\nproducts:\n  - {name: a, shortName: a, version: 1, openAPIPath: a.yaml, api: {authentication: {authType: app_key}}}\n"},
		{name: "missing environment", doc: "products: []\n", wantErr: true},
		{name: "unknown authType", doc: "environment: dev\nproducts:\n  - {name: a, shortName: a, version: 1, api: {authentication: {authType: basic}}}\n", wantErr: true},
		{name: "typo in field", doc: "environment: dev\nproducts:\n  - {name: a, shortName: a, version: 1, api: {authentication: {authType: oidc}}, backend: []}\n", wantErr: true},
		{name: "relative mapping pattern", doc: "environment: dev\nproducts:\n  - {name: a, shortName: a, version: 1, api: {authentication: {authType: oidc}}, mappings: [{method: GET, pattern: x}]}\n", wantErr: true},
		{name: "not yaml", doc: "environment: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCatalog([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
