package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/section6nz/3scale-sync/internal/model"
)

func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	return listPaged[model.Product](ctx, c, "/services.json", "services", "service")
}

// FetchProduct scans the product list; the Admin API has no lookup by system name.
func (c *Client) FetchProduct(ctx context.Context, systemName string) (*model.Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].SystemName == systemName {
			return &products[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateProduct(ctx context.Context, params model.ProductParams) (*model.Product, error) {
	form := url.Values{
		"name":        {params.Name},
		"system_name": {params.SystemName},
		"description": {params.Description},
	}
	if params.DeploymentOption != "" {
		form.Set("deployment_option", params.DeploymentOption)
	}
	var p model.Product
	if err := c.doItem(ctx, http.MethodPost, "/services.json", form, "service", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, productID int64, update model.ProductUpdate) (*model.Product, error) {
	form := url.Values{}
	if update.Name != nil {
		form.Set("name", *update.Name)
	}
	if update.Description != nil {
		form.Set("description", *update.Description)
	}
	if update.BackendVersion != nil {
		form.Set("backend_version", *update.BackendVersion)
	}
	var p model.Product
	if err := c.doItem(ctx, http.MethodPut, "/services/"+itoa(productID)+".json", form, "service", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodDelete, "/services/"+itoa(productID)+".json", nil, nil)
}
