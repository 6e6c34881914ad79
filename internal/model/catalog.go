package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Catalog is the top-level product catalog for one environment
type Catalog struct {
	Environment string        `yaml:"environment" json:"environment"`
	Products    []ProductSpec `yaml:"products" json:"products"`
}

// ProductSpec declares a product and everything attached to it
type ProductSpec struct {
	Name                string            `yaml:"name" json:"name"`
	ShortName           string            `yaml:"shortName" json:"shortName"`
	Description         string            `yaml:"description" json:"description"`
	Version             int               `yaml:"version" json:"version"`
	OpenAPIPath         StringList        `yaml:"openAPIPath" json:"openAPIPath"`
	StagingPublicURL    string            `yaml:"stagingPublicURL" json:"stagingPublicURL"`
	ProductionPublicURL string            `yaml:"productionPublicURL" json:"productionPublicURL"`
	Policies            string            `yaml:"policies" json:"policies"` // path to a JSON policy chain
	API                 APISpec           `yaml:"api" json:"api"`
	Backends            []BackendRef      `yaml:"backends" json:"backends"`
	Applications        []ApplicationSpec `yaml:"applications" json:"applications"`
	Mappings            []MappingSpec     `yaml:"mappings" json:"mappings"`

	// Derived during normalization and loading; never read from YAML.
	SystemName      string          `yaml:"-" json:"-"`
	OpenAPIMappings []MappingSpec   `yaml:"-" json:"-"`
	PolicyChain     *PolicyChainRef `yaml:"-" json:"-"`
}

// APISpec holds the public surface of a product
type APISpec struct {
	PublicBasePath string   `yaml:"publicBasePath" json:"publicBasePath"`
	Authentication AuthSpec `yaml:"authentication" json:"authentication"`
}

// AuthSpec holds authentication settings applied to the product proxy
type AuthSpec struct {
	AuthType            string     `yaml:"authType" json:"authType"` // app_key, app_id_key, oauth, oidc
	IssuerURL           string     `yaml:"issuerURL" json:"issuerURL"`
	IssuerType          string     `yaml:"issuerType" json:"issuerType"`                   // keycloak, rest
	CredentialsLocation string     `yaml:"credentialsLocation" json:"credentialsLocation"` // headers, query, authorization
	OIDCFlows           *OIDCFlows `yaml:"oidcFlows,omitempty" json:"oidcFlows,omitempty"`
}

// OIDCFlows toggles the OpenID Connect flows. Unset flags mean disabled.
type OIDCFlows struct {
	DirectAccessGrants bool `yaml:"directAccessGrants" json:"directAccessGrants"`
	ImplicitFlow       bool `yaml:"implicitFlow" json:"implicitFlow"`
	ServiceAccounts    bool `yaml:"serviceAccounts" json:"serviceAccounts"`
	StandardFlow       bool `yaml:"standardFlow" json:"standardFlow"`
}

// BackendRef attaches a private upstream to a product at a mount path
type BackendRef struct {
	ID             string `yaml:"id" json:"id"`
	PrivateBaseURL string `yaml:"privateBaseURL" json:"privateBaseURL"`
	Path           string `yaml:"path" json:"path"`
}

// ApplicationSpec declares credentials issued to an account for a product
type ApplicationSpec struct {
	Account      string `yaml:"account" json:"account"`
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	ClientID     string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty" json:"client_secret,omitempty"`
}

// MappingSpec is a single (method, pattern) routing rule
type MappingSpec struct {
	Method  string `yaml:"method" json:"method"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// PolicyChainRef is a policy chain document loaded from disk
type PolicyChainRef struct {
	Path     string
	Document json.RawMessage
}

// StringList accepts either a single string or a sequence of strings
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		if single == "" {
			*s = nil
			return nil
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = many
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}
