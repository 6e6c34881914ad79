package model

// ProductParams creates a product
type ProductParams struct {
	Name             string
	SystemName       string
	Description      string
	DeploymentOption string
}

// ProductUpdate changes mutable product fields; nil fields are left alone
type ProductUpdate struct {
	Name           *string
	Description    *string
	BackendVersion *string
}

// BackendParams creates or updates a backend
type BackendParams struct {
	Name            string
	SystemName      string
	Description     string
	PrivateEndpoint string
}

// ApplicationParams creates an application
type ApplicationParams struct {
	AccountID    int64
	PlanID       int64
	Name         string
	Description  string
	ClientID     string
	ClientSecret string
}

// ApplicationPlanParams creates an application plan
type ApplicationPlanParams struct {
	Name       string
	SystemName string
}

// MappingRuleParams creates a mapping rule
type MappingRuleParams struct {
	HTTPMethod string
	Pattern    string
	Delta      int
	MetricID   int64
}
