package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/normalize"
	"github.com/section6nz/3scale-sync/internal/openapi"
	"github.com/section6nz/3scale-sync/internal/schema"
)

// LoadCatalog loads a catalog YAML file, validates it against the catalog
// schema and normalizes it. Referenced OpenAPI and policy files are not read.
func LoadCatalog(path string) (*model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog is LoadCatalog for in-memory documents.
func ParseCatalog(data []byte) (*model.Catalog, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateCatalog(data); err != nil {
		return nil, err
	}

	var catalog model.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if err := normalize.NormalizeCatalog(&catalog); err != nil {
		return nil, fmt.Errorf("failed to normalize catalog: %w", err)
	}
	return &catalog, nil
}

// ResolveFiles reads the OpenAPI documents and policy chains the catalog
// references, relative to basedir, into each product's derived fields.
func ResolveFiles(catalog *model.Catalog, basedir string) error {
	for i := range catalog.Products {
		p := &catalog.Products[i]

		mappings, err := openapi.LoadMappings(basedir, p.OpenAPIPath)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.Name, err)
		}
		p.OpenAPIMappings = mappings

		if p.Policies == "" {
			p.PolicyChain = nil
			continue
		}
		chain, err := LoadPolicyChain(resolve(basedir, p.Policies))
		if err != nil {
			return fmt.Errorf("product %s: %w", p.Name, err)
		}
		p.PolicyChain = chain
	}
	return nil
}

// LoadPolicyChain reads a JSON file holding a policy chain array
func LoadPolicyChain(path string) (*model.PolicyChainRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var chain []json.RawMessage
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("policy file %s must hold a JSON array: %w", path, err)
	}

	doc, err := json.Marshal(chain)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy chain: %w", err)
	}
	return &model.PolicyChainRef{Path: path, Document: doc}, nil
}

func resolve(basedir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(basedir, path)
}
