// Package remote defines the control-plane capability the reconcilers consume
// and binds it to the 3scale Admin API over HTTP.
//
// Fetch-by-key methods return (nil, nil) when the entity does not exist.
// Every other non-success answer is a *syncerr.RemoteError.
package remote

import (
	"context"
	"encoding/json"

	"github.com/section6nz/3scale-sync/internal/model"
)

// API is the set of control-plane operations used by the reconcilers.
type API interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	FetchProduct(ctx context.Context, systemName string) (*model.Product, error)
	CreateProduct(ctx context.Context, params model.ProductParams) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListBackends(ctx context.Context) ([]model.Backend, error)
	FetchBackend(ctx context.Context, systemName string) (*model.Backend, error)
	CreateBackend(ctx context.Context, params model.BackendParams) (*model.Backend, error)
	UpdateBackend(ctx context.Context, id int64, params model.BackendParams) (*model.Backend, error)
	DeleteBackend(ctx context.Context, id int64) error

	ListBackendUsages(ctx context.Context, productID int64) ([]model.BackendUsage, error)
	CreateBackendUsage(ctx context.Context, productID, backendID int64, path string) (*model.BackendUsage, error)
	UpdateBackendUsage(ctx context.Context, productID, usageID int64, path string) (*model.BackendUsage, error)
	DeleteBackendUsage(ctx context.Context, productID, usageID int64) error

	ListAccounts(ctx context.Context) ([]model.Account, error)
	FetchAccount(ctx context.Context, orgName string) (*model.Account, error)
	CreateAccount(ctx context.Context, orgName string) (*model.Account, error)

	// ListApplications lists the applications of one account, or of every
	// account when accountID is 0. There is no server-side product filter.
	ListApplications(ctx context.Context, accountID int64) ([]model.Application, error)
	CreateApplication(ctx context.Context, params model.ApplicationParams) (*model.Application, error)
	DeleteApplication(ctx context.Context, accountID, applicationID int64) error

	FetchApplicationPlan(ctx context.Context, productID int64, systemName string) (*model.ApplicationPlan, error)
	CreateApplicationPlan(ctx context.Context, productID int64, params model.ApplicationPlanParams) (*model.ApplicationPlan, error)

	FetchAuthConfig(ctx context.Context, productID int64) (*model.ProxySettings, error)
	UpdateAuthConfig(ctx context.Context, productID int64, settings model.ProxySettings) (*model.ProxySettings, error)
	FetchOIDCConfig(ctx context.Context, productID int64) (*model.OIDCConfiguration, error)
	UpdateOIDCConfig(ctx context.Context, productID int64, cfg model.OIDCConfiguration) (*model.OIDCConfiguration, error)

	ListMappingRules(ctx context.Context, productID int64) ([]model.MappingRule, error)
	CreateMappingRule(ctx context.Context, productID int64, params model.MappingRuleParams) (*model.MappingRule, error)
	DeleteMappingRule(ctx context.Context, productID, ruleID int64) error
	FetchHitsMetric(ctx context.Context, productID int64) (*model.Metric, error)

	FetchPolicyChain(ctx context.Context, productID int64) (json.RawMessage, error)
	UpdatePolicyChain(ctx context.Context, productID int64, chain json.RawMessage) error

	// FetchLatestProxyConfig returns nil when env has no configuration yet.
	FetchLatestProxyConfig(ctx context.Context, productID int64, env string) (*model.ProxyConfigVersion, error)
	PromoteProxyConfig(ctx context.Context, productID int64, version int, to string) error
}
