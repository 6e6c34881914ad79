package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/section6nz/3scale-sync/internal/model"
)

func (c *Client) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return listPaged[model.Account](ctx, c, "/accounts.json", "accounts", "account")
}

func (c *Client) FetchAccount(ctx context.Context, orgName string) (*model.Account, error) {
	accounts, err := c.ListAccounts(ctx)
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

// CreateAccount signs up an approved developer account whose organization
// and admin user are both named orgName.
func (c *Client) CreateAccount(ctx context.Context, orgName string) (*model.Account, error) {
	form := url.Values{
		"org_name": {orgName},
		"username": {orgName},
	}
	var a model.Account
	if err := c.doItem(ctx, http.MethodPost, "/signup.json", form, "account", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) ListApplications(ctx context.Context, accountID int64) ([]model.Application, error) {
	path := "/applications.json"
	if accountID != 0 {
		path = "/accounts/" + itoa(accountID) + "/applications.json"
	}
	return listPaged[model.Application](ctx, c, path, "applications", "application")
}

func (c *Client) CreateApplication(ctx context.Context, params model.ApplicationParams) (*model.Application, error) {
	form := url.Values{
		"plan_id":     {itoa(params.PlanID)},
		"name":        {params.Name},
		"description": {params.Description},
	}
	if params.ClientID != "" {
		form.Set("application_id", params.ClientID)
	}
	if params.ClientSecret != "" {
		form.Set("application_key", params.ClientSecret)
	}
	var a model.Application
	path := "/accounts/" + itoa(params.AccountID) + "/applications.json"
	if err := c.doItem(ctx, http.MethodPost, path, form, "application", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteApplication(ctx context.Context, accountID, applicationID int64) error {
	path := "/accounts/" + itoa(accountID) + "/applications/" + itoa(applicationID) + ".json"
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) FetchApplicationPlan(ctx context.Context, productID int64, systemName string) (*model.ApplicationPlan, error) {
	plans, err := listEnvelope[model.ApplicationPlan](ctx, c, plansPath(productID), "plans", "application_plan", nil)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].SystemName == systemName {
			return &plans[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateApplicationPlan(ctx context.Context, productID int64, params model.ApplicationPlanParams) (*model.ApplicationPlan, error) {
	form := url.Values{
		"name":        {params.Name},
		"system_name": {params.SystemName},
	}
	var p model.ApplicationPlan
	if err := c.doItem(ctx, http.MethodPost, plansPath(productID), form, "application_plan", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func plansPath(productID int64) string {
	return "/services/" + itoa(productID) + "/application_plans.json"
}
