package model

// Product is a service registered in the control plane
type Product struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	SystemName       string `json:"system_name"`
	Description      string `json:"description"`
	State            string `json:"state,omitempty"`
	BackendVersion   string `json:"backend_version,omitempty"` // authentication mode
	DeploymentOption string `json:"deployment_option,omitempty"`
}

// Backend is a private upstream API registered independently of any product
type Backend struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	SystemName      string `json:"system_name"`
	Description     string `json:"description"`
	PrivateEndpoint string `json:"private_endpoint"`
}

// BackendUsage attaches a backend to a product at a mount path
type BackendUsage struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	ProductID int64  `json:"service_id"`
	BackendID int64  `json:"backend_id"`
}

// Account is a developer account; OrgName is its stable key
type Account struct {
	ID      int64  `json:"id"`
	OrgName string `json:"org_name"`
	State   string `json:"state,omitempty"`
}

// Application is a set of credentials bound to a product and owned by an account
type Application struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	State         string `json:"state,omitempty"`
	AccountID     int64  `json:"account_id"`
	ProductID     int64  `json:"service_id"`
	PlanID        int64  `json:"plan_id"`
	ApplicationID string `json:"application_id,omitempty"`
	ClientID      string `json:"client_id,omitempty"`
	ClientSecret  string `json:"client_secret,omitempty"`
	UserKey       string `json:"user_key,omitempty"`
}

// Credential returns whichever client identifier the control plane reported.
func (a Application) Credential() string {
	if a.ClientID != "" {
		return a.ClientID
	}
	return a.ApplicationID
}

// ApplicationPlan is a subscription plan of a product
type ApplicationPlan struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SystemName string `json:"system_name"`
	State      string `json:"state,omitempty"`
	Default    bool   `json:"default,omitempty"`
}

// MappingRule routes requests matching (HTTPMethod, Pattern) to a metric
type MappingRule struct {
	ID         int64  `json:"id"`
	MetricID   int64  `json:"metric_id"`
	Pattern    string `json:"pattern"`
	HTTPMethod string `json:"http_method"`
	Delta      int    `json:"delta"`
	Position   int    `json:"position,omitempty"`
	Last       bool   `json:"last,omitempty"`
}

// Metric is a usage counter of a product
type Metric struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SystemName   string `json:"system_name"`
	FriendlyName string `json:"friendly_name,omitempty"`
	Unit         string `json:"unit,omitempty"`
}

// ProxySettings is the per-product gateway configuration singleton
type ProxySettings struct {
	Endpoint            string `json:"endpoint"`
	SandboxEndpoint     string `json:"sandbox_endpoint"`
	CredentialsLocation string `json:"credentials_location"`
	OIDCIssuerEndpoint  string `json:"oidc_issuer_endpoint"`
	OIDCIssuerType      string `json:"oidc_issuer_type"`
}

// OIDCConfiguration is the per-product OpenID Connect flow singleton
type OIDCConfiguration struct {
	StandardFlowEnabled       bool `json:"standard_flow_enabled"`
	ImplicitFlowEnabled       bool `json:"implicit_flow_enabled"`
	ServiceAccountsEnabled    bool `json:"service_accounts_enabled"`
	DirectAccessGrantsEnabled bool `json:"direct_access_grants_enabled"`
}

// ProxyConfigVersion identifies a deployed gateway configuration
type ProxyConfigVersion struct {
	ID          int64  `json:"id"`
	Version     int    `json:"version"`
	Environment string `json:"environment"`
}

// Gateway configuration environments.
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// HitsMetric is the system name of the built-in request counter.
const HitsMetric = "hits"
