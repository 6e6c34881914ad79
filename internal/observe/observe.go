// Package observe reads the control plane's current state for the
// reconcilers. Nothing here mutates remote state.
package observe

import (
	"context"
	"fmt"
	"sync"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/remote"
)

// Snapshot caches list responses for the duration of one product sync. Every
// list is fetched at most once and callers receive copies, so one reconciler
// cannot change what another observes. A reconciler that needs a fresher view
// goes to the API directly.
type Snapshot struct {
	api remote.API

	mu             sync.Mutex
	accounts       []model.Account
	accountsLoaded bool
	usages         map[int64][]model.BackendUsage
}

// NewSnapshot returns an empty cache over api.
func NewSnapshot(api remote.API) *Snapshot {
	return &Snapshot{api: api, usages: map[int64][]model.BackendUsage{}}
}

// Accounts returns every developer account.
func (s *Snapshot) Accounts(ctx context.Context) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accountsLoaded {
		accounts, err := s.api.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		s.accounts = append(make([]model.Account, 0, len(accounts)), accounts...)
		s.accountsLoaded = true
	}
	return append([]model.Account(nil), s.accounts...), nil
}

// FindAccount looks orgName up in the cached account list. It returns nil
// when the account was not there at fetch time.
func (s *Snapshot) FindAccount(ctx context.Context, orgName string) (*model.Account, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].OrgName == orgName {
			return &accounts[i], nil
		}
	}
	return nil, nil
}

// BackendUsages returns the backends attached to a product.
func (s *Snapshot) BackendUsages(ctx context.Context, productID int64) ([]model.BackendUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usages, ok := s.usages[productID]
	if !ok {
		fetched, err := s.api.ListBackendUsages(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to list backend usages of product %d: %w", productID, err)
		}
		usages = append(make([]model.BackendUsage, 0, len(fetched)), fetched...)
		s.usages[productID] = usages
	}
	return append([]model.BackendUsage(nil), usages...), nil
}

// UsageForBackend returns the usage attaching backendID to productID, or nil.
func (s *Snapshot) UsageForBackend(ctx context.Context, productID, backendID int64) (*model.BackendUsage, error) {
	usages, err := s.BackendUsages(ctx, productID)
	if err != nil {
		return nil, err
	}
	for i := range usages {
		if usages[i].BackendID == backendID {
			return &usages[i], nil
		}
	}
	return nil, nil
}

// Applications lists applications across all accounts. The Admin API cannot
// filter by product.
func Applications(ctx context.Context, api remote.API) ([]model.Application, error) {
	all, err := api.ListApplications(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return all, nil
}

// ForProduct keeps the applications bound to productID.
func ForProduct(apps []model.Application, productID int64) []model.Application {
	var out []model.Application
	for _, a := range apps {
		if a.ProductID == productID {
			out = append(out, a)
		}
	}
	return out
}

// MappingKey identifies a mapping rule within a product.
type MappingKey struct {
	Method  string
	Pattern string
}

func (k MappingKey) String() string {
	return k.Method + " " + k.Pattern
}

// KeyOf returns the identity of an observed rule.
func KeyOf(r model.MappingRule) MappingKey {
	return MappingKey{Method: r.HTTPMethod, Pattern: r.Pattern}
}

// IndexMappingRules groups observed rules by identity. Duplicates, which the
// control plane allows, share one key.
func IndexMappingRules(rules []model.MappingRule) map[MappingKey][]model.MappingRule {
	idx := make(map[MappingKey][]model.MappingRule, len(rules))
	for _, r := range rules {
		k := KeyOf(r)
		idx[k] = append(idx[k], r)
	}
	return idx
}
