package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.schema.yaml
var catalogSchema []byte

const catalogSchemaURL = "schema://threescale-sync/catalog.schema.json"

// Validator handles JSON schema validation
type Validator struct {
	catalogSchema *jsonschema.Schema
}

// NewValidator compiles the embedded catalog schema
func NewValidator() (*Validator, error) {
	catalog, err := compile(catalogSchemaURL, catalogSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog schema: %w", err)
	}
	return &Validator{catalogSchema: catalog}, nil
}

// ValidateCatalog validates a raw catalog document (YAML or JSON)
func (v *Validator) ValidateCatalog(data []byte) error {
	if v.catalogSchema == nil {
		return fmt.Errorf("catalog schema not loaded")
	}
	doc, err := toJSONValue(data)
	if err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := v.catalogSchema.Validate(doc); err != nil {
		return fmt.Errorf("catalog does not match schema: %w", err)
	}
	return nil
}

// compile loads and compiles a schema document (JSON or YAML)
func compile(url string, data []byte) (*jsonschema.Schema, error) {
	jsonData, err := yamlToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(string(jsonData))); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// yamlToJSON converts a YAML (or JSON) document to JSON bytes
func yamlToJSON(data []byte) ([]byte, error) {
	var obj interface{}
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// toJSONValue decodes a document into the value types the validator expects
func toJSONValue(data []byte) (interface{}, error) {
	jsonData, err := yamlToJSON(data)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(jsonData, &v); err != nil {
		return nil, err
	}
	return v, nil
}
