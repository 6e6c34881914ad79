package reconcile

import (
	"context"
	"fmt"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/observe"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

// reconcileApplications deletes applications of the product that are no
// longer declared, then makes sure each declared one exists with the right
// account, plan and credentials.
func reconcileApplications(ctx context.Context, s *productSync) error {
	desired := make(map[string]model.ApplicationSpec, len(s.spec.Applications))
	for _, a := range s.spec.Applications {
		desired[model.ApplicationName(s.environment, s.spec, a)] = a
	}

	all, err := observe.Applications(ctx, s.api)
	if err != nil {
		return err
	}

	for _, app := range observe.ForProduct(all, s.productID()) {
		if _, ok := desired[app.Name]; ok {
			continue
		}
		if err := s.api.DeleteApplication(ctx, app.AccountID, app.ID); err != nil {
			return fmt.Errorf("failed to delete application %s: %w", app.Name, err)
		}
		s.record("application", OpDelete, app.Name)
	}

	// Application names are unique across the tenant, so a declared name
	// collides with applications of any product.
	existing := map[string][]model.Application{}
	for _, app := range all {
		if _, ok := desired[app.Name]; ok {
			existing[app.Name] = append(existing[app.Name], app)
		}
	}

	if len(s.spec.Applications) == 0 {
		return nil
	}

	plan, err := ensureApplicationPlan(ctx, s)
	if err != nil {
		return err
	}

	for _, a := range s.spec.Applications {
		name := model.ApplicationName(s.environment, s.spec, a)
		account, err := ensureAccount(ctx, s, a.Account)
		if err != nil {
			return err
		}
		if err := ensureApplication(ctx, s, name, a, account, plan, existing[name]); err != nil {
			return err
		}
	}
	return nil
}

// ensureAccount resolves orgName, creating the account when it does not
// exist. Accounts are never updated or deleted.
func ensureAccount(ctx context.Context, s *productSync, orgName string) (*model.Account, error) {
	account, err := s.snapshot.FindAccount(ctx, orgName)
	if err != nil || account != nil {
		return account, err
	}

	// The shared list predates this sync's own account creations.
	account, err = s.api.FetchAccount(ctx, orgName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", orgName, err)
	}
	if account != nil {
		return account, nil
	}

	if _, err := s.api.CreateAccount(ctx, orgName); err != nil {
		if !syncerr.IsConflict(err) {
			return nil, fmt.Errorf("failed to create account %s: %w", orgName, err)
		}
	} else {
		s.record("account", OpCreate, orgName)
	}

	account, err = s.api.FetchAccount(ctx, orgName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", orgName, err)
	}
	if account == nil {
		return nil, &syncerr.NotFoundError{Kind: "account", Key: orgName}
	}
	return account, nil
}

// ensureApplicationPlan fetches or creates the plan of this product version.
// Plans are never updated.
func ensureApplicationPlan(ctx context.Context, s *productSync) (*model.ApplicationPlan, error) {
	name := model.ApplicationPlanName(s.environment, s.spec)
	systemName := model.SystemName(name)

	plan, err := s.api.FetchApplicationPlan(ctx, s.productID(), systemName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch application plan %s: %w", systemName, err)
	}
	if plan != nil {
		return plan, nil
	}

	plan, err = s.api.CreateApplicationPlan(ctx, s.productID(), model.ApplicationPlanParams{Name: name, SystemName: systemName})
	if err == nil {
		s.record("application_plan", OpCreate, systemName)
		return plan, nil
	}
	if !syncerr.IsConflict(err) {
		return nil, fmt.Errorf("failed to create application plan %s: %w", systemName, err)
	}

	plan, err = s.api.FetchApplicationPlan(ctx, s.productID(), systemName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch application plan %s: %w", systemName, err)
	}
	if plan == nil {
		return nil, &syncerr.NotFoundError{Kind: "application plan", Key: systemName}
	}
	return plan, nil
}

// ensureApplication leaves a matching application alone. Anything else under
// the same name is deleted and the application created afresh, so issued
// credentials always equal the declared ones.
func ensureApplication(ctx context.Context, s *productSync, name string, spec model.ApplicationSpec,
	account *model.Account, plan *model.ApplicationPlan, existing []model.Application) error {
	if len(existing) == 1 && applicationMatches(existing[0], spec, s.productID(), account, plan, s.spec.Description) {
		return nil
	}

	for _, app := range existing {
		if err := s.api.DeleteApplication(ctx, app.AccountID, app.ID); err != nil {
			return fmt.Errorf("failed to delete application %s: %w", name, err)
		}
		s.record("application", OpDelete, name)
	}

	_, err := s.api.CreateApplication(ctx, model.ApplicationParams{
		AccountID:    account.ID,
		PlanID:       plan.ID,
		Name:         name,
		Description:  s.spec.Description,
		ClientID:     spec.ClientID,
		ClientSecret: spec.ClientSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to create application %s: %w", name, err)
	}
	s.record("application", OpCreate, name)
	return nil
}

func applicationMatches(app model.Application, spec model.ApplicationSpec, productID int64,
	account *model.Account, plan *model.ApplicationPlan, description string) bool {
	if app.ProductID != productID || app.AccountID != account.ID || app.PlanID != plan.ID || app.Description != description {
		return false
	}
	if spec.ClientID != "" && app.Credential() != spec.ClientID {
		return false
	}
	// app_id_key applications report keys instead of a client secret.
	if spec.ClientSecret != "" && app.ClientSecret != "" && app.ClientSecret != spec.ClientSecret {
		return false
	}
	return true
}
