// Package openapi derives mapping rules from OpenAPI 2 and 3 documents.
package openapi

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/pkg/logging"
)

var methods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// LoadMappings reads every file in paths, resolved against basedir, and
// returns their mappings in document order.
func LoadMappings(basedir string, paths []string) ([]model.MappingSpec, error) {
	var out []model.MappingSpec
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(basedir, p)
		}
		mappings, err := LoadFile(full)
		if err != nil {
			return nil, err
		}
		out = append(out, mappings...)
	}
	return out, nil
}

// LoadFile reads one .yaml, .yml or .json OpenAPI document.
func LoadFile(path string) ([]model.MappingSpec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("invalid file extension for OpenAPI document %s, requires YAML or JSON", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI document: %w", err)
	}
	mappings, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document %s: %w", path, err)
	}
	logging.Debug("openapi", "%s: %d mappings", path, len(mappings))
	return mappings, nil
}

// Parse extracts one mapping per operation. Patterns are anchored with "$"
// and carry the document's base path; the product's public base path is not
// applied here.
func Parse(data []byte) ([]model.MappingSpec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document is not an object")
	}
	root := doc.Content[0]

	base, err := basePath(root)
	if err != nil {
		return nil, err
	}

	paths := lookup(root, "paths")
	if paths == nil {
		return nil, nil
	}
	if paths.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: paths must be an object", paths.Line)
	}

	var out []model.MappingSpec
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path, item := paths.Content[i].Value, paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			method := strings.ToLower(item.Content[j].Value)
			if !methods[method] {
				continue
			}
			out = append(out, model.MappingSpec{
				Method:  strings.ToUpper(method),
				Pattern: base + strings.TrimPrefix(path, "/") + "$",
			})
		}
	}
	return out, nil
}

// basePath returns the prefix shared by every path, always ending in "/".
// Swagger 2 declares it as basePath; OpenAPI 3 carries it in the first
// server URL.
func basePath(root *yaml.Node) (string, error) {
	base := "/"
	switch {
	case lookup(root, "swagger") != nil:
		if v := lookup(root, "swagger").Value; !strings.HasPrefix(v, "2.") {
			return "", fmt.Errorf("unsupported swagger version %q", v)
		}
		if n := lookup(root, "basePath"); n != nil && n.Value != "" {
			base = n.Value
		}
	case lookup(root, "openapi") != nil:
		servers := lookup(root, "servers")
		if servers != nil && servers.Kind == yaml.SequenceNode && len(servers.Content) > 0 {
			if n := lookup(servers.Content[0], "url"); n != nil {
				u, err := url.Parse(n.Value)
				switch {
				case err != nil || strings.Contains(n.Value, "{"):
					logging.Warn("openapi", "cannot resolve server URL %q, using / as base path", n.Value)
				case u.Path != "":
					base = u.Path
				}
			}
		}
	default:
		return "", fmt.Errorf("missing swagger or openapi version field")
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base, nil
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
