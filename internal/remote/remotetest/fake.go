// Package remotetest provides an in-memory control plane implementing
// remote.API for tests. It records every call and mimics the Admin API's
// duplicate and promotion conflicts with 422 RemoteErrors.
package remotetest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/remote"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

// Call is one recorded API invocation.
type Call struct {
	Method string
	Key    string
}

// Mutating reports whether the call changes control-plane state.
func (c Call) Mutating() bool {
	for _, prefix := range []string{"Create", "Update", "Delete", "Promote"} {
		if strings.HasPrefix(c.Method, prefix) {
			return true
		}
	}
	return false
}

// Fake is safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	nextID int64
	calls  []Call
	errs   map[string]error

	products     map[int64]*model.Product
	backends     map[int64]*model.Backend
	usages       map[int64]*model.BackendUsage
	accounts     map[int64]*model.Account
	applications map[int64]*model.Application
	plans        map[int64]map[int64]*model.ApplicationPlan // product id -> plans
	proxies      map[int64]*model.ProxySettings
	oidc         map[int64]*model.OIDCConfiguration
	rules        map[int64]map[int64]*model.MappingRule // product id -> rules
	metrics      map[int64]*model.Metric                // product id -> hits
	policies     map[int64]json.RawMessage
	sandbox      map[int64]int
	production   map[int64]int
}

var _ remote.API = (*Fake)(nil)

// New returns an empty control plane.
func New() *Fake {
	return &Fake{
		errs:         map[string]error{},
		products:     map[int64]*model.Product{},
		backends:     map[int64]*model.Backend{},
		usages:       map[int64]*model.BackendUsage{},
		accounts:     map[int64]*model.Account{},
		applications: map[int64]*model.Application{},
		plans:        map[int64]map[int64]*model.ApplicationPlan{},
		proxies:      map[int64]*model.ProxySettings{},
		oidc:         map[int64]*model.OIDCConfiguration{},
		rules:        map[int64]map[int64]*model.MappingRule{},
		metrics:      map[int64]*model.Metric{},
		policies:     map[int64]json.RawMessage{},
		sandbox:      map[int64]int{},
		production:   map[int64]int{},
	}
}

// Fail makes every later call of method return err. A nil err clears it.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many times method was called.
func (f *Fake) Count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Mutations returns the recorded calls that changed state, in order.
func (f *Fake) Mutations() []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Mutating() {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets the recorded calls; state is kept.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Versions returns the latest sandbox and production config versions of a product.
func (f *Fake) Versions(productID int64) (sandbox, production int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sandbox[productID], f.production[productID]
}

// record must be called with f.mu held.
func (f *Fake) record(method, key string) error {
	f.calls = append(f.calls, Call{Method: method, Key: key})
	return f.errs[method]
}

func (f *Fake) id() int64 {
	f.nextID++
	return f.nextID
}

func conflict(op, msg string) error {
	return &syncerr.RemoteError{Op: op, StatusCode: http.StatusUnprocessableEntity, Body: fmt.Sprintf(`{"errors":{"base":[%q]}}`, msg)}
}

func missing(op string) error {
	return &syncerr.RemoteError{Op: op, StatusCode: http.StatusNotFound, Body: `{"status":"Not found"}`}
}

func sortedValues[T any](m map[int64]*T) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m[id])
	}
	return out
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// Products

func (f *Fake) ListProducts(ctx context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListProducts", ""); err != nil {
		return nil, err
	}
	return sortedValues(f.products), nil
}

func (f *Fake) FetchProduct(ctx context.Context, systemName string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchProduct", systemName); err != nil {
		return nil, err
	}
	if p := f.productBySystemName(systemName); p != nil {
		return clone(p), nil
	}
	return nil, nil
}

func (f *Fake) productBySystemName(systemName string) *model.Product {
	for _, p := range f.products {
		if p.SystemName == systemName {
			return p
		}
	}
	return nil
}

func (f *Fake) CreateProduct(ctx context.Context, params model.ProductParams) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateProduct", params.SystemName); err != nil {
		return nil, err
	}
	if f.productBySystemName(params.SystemName) != nil {
		return nil, conflict("POST services", "system_name has already been taken")
	}
	p := &model.Product{
		ID:               f.id(),
		Name:             params.Name,
		SystemName:       params.SystemName,
		Description:      params.Description,
		State:            "incomplete",
		BackendVersion:   "1",
		DeploymentOption: params.DeploymentOption,
	}
	f.products[p.ID] = p
	f.proxies[p.ID] = &model.ProxySettings{CredentialsLocation: "query"}
	f.oidc[p.ID] = &model.OIDCConfiguration{StandardFlowEnabled: true}
	f.metrics[p.ID] = &model.Metric{ID: f.id(), Name: "Hits", SystemName: model.HitsMetric, FriendlyName: "Hits", Unit: "hit"}
	f.policies[p.ID] = json.RawMessage(`[]`)
	f.plans[p.ID] = map[int64]*model.ApplicationPlan{}
	f.rules[p.ID] = map[int64]*model.MappingRule{}
	return clone(p), nil
}

func (f *Fake) UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateProduct", fmt.Sprint(id)); err != nil {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, missing("PUT services")
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.BackendVersion != nil {
		p.BackendVersion = *update.BackendVersion
	}
	return clone(p), nil
}

func (f *Fake) DeleteProduct(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteProduct", fmt.Sprint(id)); err != nil {
		return err
	}
	if _, ok := f.products[id]; !ok {
		return missing("DELETE services")
	}
	delete(f.products, id)
	for uid, u := range f.usages {
		if u.ProductID == id {
			delete(f.usages, uid)
		}
	}
	for aid, a := range f.applications {
		if a.ProductID == id {
			delete(f.applications, aid)
		}
	}
	return nil
}

// Backends

func (f *Fake) ListBackends(ctx context.Context) ([]model.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListBackends", ""); err != nil {
		return nil, err
	}
	return sortedValues(f.backends), nil
}

func (f *Fake) FetchBackend(ctx context.Context, systemName string) (*model.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchBackend", systemName); err != nil {
		return nil, err
	}
	if b := f.backendBySystemName(systemName); b != nil {
		return clone(b), nil
	}
	return nil, nil
}

func (f *Fake) backendBySystemName(systemName string) *model.Backend {
	for _, b := range f.backends {
		if b.SystemName == systemName {
			return b
		}
	}
	return nil
}

func (f *Fake) CreateBackend(ctx context.Context, params model.BackendParams) (*model.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateBackend", params.SystemName); err != nil {
		return nil, err
	}
	if f.backendBySystemName(params.SystemName) != nil {
		return nil, conflict("POST backend_apis", "system_name has already been taken")
	}
	b := &model.Backend{
		ID:              f.id(),
		Name:            params.Name,
		SystemName:      params.SystemName,
		Description:     params.Description,
		PrivateEndpoint: params.PrivateEndpoint,
	}
	f.backends[b.ID] = b
	return clone(b), nil
}

func (f *Fake) UpdateBackend(ctx context.Context, id int64, params model.BackendParams) (*model.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateBackend", fmt.Sprint(id)); err != nil {
		return nil, err
	}
	b, ok := f.backends[id]
	if !ok {
		return nil, missing("PUT backend_apis")
	}
	b.Name = params.Name
	b.Description = params.Description
	b.PrivateEndpoint = params.PrivateEndpoint
	return clone(b), nil
}

func (f *Fake) DeleteBackend(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteBackend", fmt.Sprint(id)); err != nil {
		return err
	}
	if _, ok := f.backends[id]; !ok {
		return missing("DELETE backend_apis")
	}
	for _, u := range f.usages {
		if u.BackendID == id {
			return conflict("DELETE backend_apis", "backend is used by a product")
		}
	}
	delete(f.backends, id)
	return nil
}

// Backend usages

func (f *Fake) ListBackendUsages(ctx context.Context, productID int64) ([]model.BackendUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListBackendUsages", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	var out []model.BackendUsage
	for _, u := range sortedValues(f.usages) {
		if u.ProductID == productID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *Fake) CreateBackendUsage(ctx context.Context, productID, backendID int64, path string) (*model.BackendUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateBackendUsage", fmt.Sprintf("%d/%d", productID, backendID)); err != nil {
		return nil, err
	}
	for _, u := range f.usages {
		if u.ProductID != productID {
			continue
		}
		if u.BackendID == backendID {
			return nil, conflict("POST backend_usages", "backend has already been taken")
		}
		if u.Path == path {
			return nil, conflict("POST backend_usages", "path has already been taken")
		}
	}
	u := &model.BackendUsage{ID: f.id(), Path: path, ProductID: productID, BackendID: backendID}
	f.usages[u.ID] = u
	return clone(u), nil
}

func (f *Fake) UpdateBackendUsage(ctx context.Context, productID, usageID int64, path string) (*model.BackendUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateBackendUsage", fmt.Sprintf("%d/%d", productID, usageID)); err != nil {
		return nil, err
	}
	u, ok := f.usages[usageID]
	if !ok || u.ProductID != productID {
		return nil, missing("PUT backend_usages")
	}
	u.Path = path
	return clone(u), nil
}

func (f *Fake) DeleteBackendUsage(ctx context.Context, productID, usageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteBackendUsage", fmt.Sprintf("%d/%d", productID, usageID)); err != nil {
		return err
	}
	u, ok := f.usages[usageID]
	if !ok || u.ProductID != productID {
		return missing("DELETE backend_usages")
	}
	delete(f.usages, usageID)
	return nil
}

// Accounts

func (f *Fake) ListAccounts(ctx context.Context) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListAccounts", ""); err != nil {
		return nil, err
	}
	return sortedValues(f.accounts), nil
}

func (f *Fake) FetchAccount(ctx context.Context, orgName string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchAccount", orgName); err != nil {
		return nil, err
	}
	for _, a := range f.accounts {
		if a.OrgName == orgName {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (f *Fake) CreateAccount(ctx context.Context, orgName string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateAccount", orgName); err != nil {
		return nil, err
	}
	for _, a := range f.accounts {
		if a.OrgName == orgName {
			return nil, conflict("POST signup", "org_name has already been taken")
		}
	}
	a := &model.Account{ID: f.id(), OrgName: orgName, State: "approved"}
	f.accounts[a.ID] = a
	return clone(a), nil
}

// Applications

func (f *Fake) ListApplications(ctx context.Context, accountID int64) ([]model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListApplications", fmt.Sprint(accountID)); err != nil {
		return nil, err
	}
	var out []model.Application
	for _, a := range sortedValues(f.applications) {
		if accountID == 0 || a.AccountID == accountID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *Fake) CreateApplication(ctx context.Context, params model.ApplicationParams) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateApplication", params.Name); err != nil {
		return nil, err
	}
	if _, ok := f.accounts[params.AccountID]; !ok {
		return nil, missing("POST applications")
	}
	productID, ok := f.productOfPlan(params.PlanID)
	if !ok {
		return nil, conflict("POST applications", "plan does not exist")
	}
	if params.ClientID != "" {
		for _, a := range f.applications {
			if a.ClientID == params.ClientID {
				return nil, conflict("POST applications", "application_id has already been taken")
			}
		}
	}
	a := &model.Application{
		ID:           f.id(),
		Name:         params.Name,
		Description:  params.Description,
		State:        "live",
		AccountID:    params.AccountID,
		ProductID:    productID,
		PlanID:       params.PlanID,
		ClientID:     params.ClientID,
		ClientSecret: params.ClientSecret,
	}
	if a.ClientID == "" {
		a.ClientID = fmt.Sprintf("generated-%d", a.ID)
	}
	if a.ClientSecret == "" {
		a.ClientSecret = fmt.Sprintf("generated-secret-%d", a.ID)
	}
	f.applications[a.ID] = a
	return clone(a), nil
}

func (f *Fake) productOfPlan(planID int64) (int64, bool) {
	for productID, plans := range f.plans {
		if _, ok := plans[planID]; ok {
			return productID, true
		}
	}
	return 0, false
}

func (f *Fake) DeleteApplication(ctx context.Context, accountID, applicationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteApplication", fmt.Sprintf("%d/%d", accountID, applicationID)); err != nil {
		return err
	}
	a, ok := f.applications[applicationID]
	if !ok || a.AccountID != accountID {
		return missing("DELETE applications")
	}
	delete(f.applications, applicationID)
	return nil
}

// Application plans

func (f *Fake) FetchApplicationPlan(ctx context.Context, productID int64, systemName string) (*model.ApplicationPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchApplicationPlan", systemName); err != nil {
		return nil, err
	}
	for _, p := range f.plans[productID] {
		if p.SystemName == systemName {
			return clone(p), nil
		}
	}
	return nil, nil
}

func (f *Fake) CreateApplicationPlan(ctx context.Context, productID int64, params model.ApplicationPlanParams) (*model.ApplicationPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateApplicationPlan", params.SystemName); err != nil {
		return nil, err
	}
	plans, ok := f.plans[productID]
	if !ok {
		return nil, missing("POST application_plans")
	}
	for _, p := range plans {
		if p.SystemName == params.SystemName {
			return nil, conflict("POST application_plans", "system_name has already been taken")
		}
	}
	p := &model.ApplicationPlan{ID: f.id(), Name: params.Name, SystemName: params.SystemName, State: "published"}
	plans[p.ID] = p
	return clone(p), nil
}

// Proxy

func (f *Fake) FetchAuthConfig(ctx context.Context, productID int64) (*model.ProxySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchAuthConfig", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	s, ok := f.proxies[productID]
	if !ok {
		return nil, missing("GET proxy")
	}
	return clone(s), nil
}

// UpdateAuthConfig merges the non-empty fields and stages a new sandbox
// config version, as the Admin API does for every proxy update.
func (f *Fake) UpdateAuthConfig(ctx context.Context, productID int64, settings model.ProxySettings) (*model.ProxySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateAuthConfig", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	s, ok := f.proxies[productID]
	if !ok {
		return nil, missing("PATCH proxy")
	}
	merge := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	merge(&s.Endpoint, settings.Endpoint)
	merge(&s.SandboxEndpoint, settings.SandboxEndpoint)
	merge(&s.CredentialsLocation, settings.CredentialsLocation)
	merge(&s.OIDCIssuerEndpoint, settings.OIDCIssuerEndpoint)
	merge(&s.OIDCIssuerType, settings.OIDCIssuerType)
	f.sandbox[productID]++
	return clone(s), nil
}

func (f *Fake) FetchOIDCConfig(ctx context.Context, productID int64) (*model.OIDCConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchOIDCConfig", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	o, ok := f.oidc[productID]
	if !ok {
		return nil, missing("GET oidc_configuration")
	}
	return clone(o), nil
}

func (f *Fake) UpdateOIDCConfig(ctx context.Context, productID int64, cfg model.OIDCConfiguration) (*model.OIDCConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateOIDCConfig", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	if _, ok := f.oidc[productID]; !ok {
		return nil, missing("PATCH oidc_configuration")
	}
	f.oidc[productID] = &cfg
	return clone(&cfg), nil
}

// Mapping rules

func (f *Fake) ListMappingRules(ctx context.Context, productID int64) ([]model.MappingRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListMappingRules", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	return sortedValues(f.rules[productID]), nil
}

func (f *Fake) CreateMappingRule(ctx context.Context, productID int64, params model.MappingRuleParams) (*model.MappingRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateMappingRule", params.HTTPMethod+" "+params.Pattern); err != nil {
		return nil, err
	}
	rules, ok := f.rules[productID]
	if !ok {
		return nil, missing("POST mapping_rules")
	}
	if m := f.metrics[productID]; m == nil || m.ID != params.MetricID {
		return nil, conflict("POST mapping_rules", "metric is invalid")
	}
	r := &model.MappingRule{
		ID:         f.id(),
		MetricID:   params.MetricID,
		Pattern:    params.Pattern,
		HTTPMethod: params.HTTPMethod,
		Delta:      params.Delta,
		Position:   len(rules) + 1,
	}
	rules[r.ID] = r
	return clone(r), nil
}

func (f *Fake) DeleteMappingRule(ctx context.Context, productID, ruleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteMappingRule", fmt.Sprintf("%d/%d", productID, ruleID)); err != nil {
		return err
	}
	if _, ok := f.rules[productID][ruleID]; !ok {
		return missing("DELETE mapping_rules")
	}
	delete(f.rules[productID], ruleID)
	return nil
}

func (f *Fake) FetchHitsMetric(ctx context.Context, productID int64) (*model.Metric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchHitsMetric", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	m, ok := f.metrics[productID]
	if !ok {
		return nil, &syncerr.NotFoundError{Kind: "metric", Key: model.HitsMetric}
	}
	return clone(m), nil
}

// Policies

func (f *Fake) FetchPolicyChain(ctx context.Context, productID int64) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchPolicyChain", fmt.Sprint(productID)); err != nil {
		return nil, err
	}
	chain, ok := f.policies[productID]
	if !ok {
		return nil, missing("GET policies")
	}
	return append(json.RawMessage(nil), chain...), nil
}

func (f *Fake) UpdatePolicyChain(ctx context.Context, productID int64, chain json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdatePolicyChain", fmt.Sprint(productID)); err != nil {
		return err
	}
	if _, ok := f.policies[productID]; !ok {
		return missing("PUT policies")
	}
	if !json.Valid(chain) {
		return conflict("PUT policies", "policies_config is invalid")
	}
	f.policies[productID] = append(json.RawMessage(nil), chain...)
	return nil
}

// Promotion

func (f *Fake) FetchLatestProxyConfig(ctx context.Context, productID int64, env string) (*model.ProxyConfigVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchLatestProxyConfig", fmt.Sprintf("%d/%s", productID, env)); err != nil {
		return nil, err
	}
	version := f.sandbox[productID]
	if env == model.EnvironmentProduction {
		version = f.production[productID]
	}
	if version == 0 {
		return nil, nil
	}
	return &model.ProxyConfigVersion{ID: productID*1000 + int64(version), Version: version, Environment: env}, nil
}

func (f *Fake) PromoteProxyConfig(ctx context.Context, productID int64, version int, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PromoteProxyConfig", fmt.Sprintf("%d/%d", productID, version)); err != nil {
		return err
	}
	if version == 0 || version > f.sandbox[productID] {
		return missing("POST promote")
	}
	if f.production[productID] == version {
		return conflict("POST promote", "config already promoted")
	}
	f.production[productID] = version
	return nil
}
