package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/section6nz/3scale-sync/internal/model"
)

func (c *Client) ListBackends(ctx context.Context) ([]model.Backend, error) {
	return listPaged[model.Backend](ctx, c, "/backend_apis.json", "backend_apis", "backend_api")
}

func (c *Client) FetchBackend(ctx context.Context, systemName string) (*model.Backend, error) {
	backends, err := c.ListBackends(ctx)
	if err != nil {
		return nil, err
	}
	for i := range backends {
		if backends[i].SystemName == systemName {
			return &backends[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateBackend(ctx context.Context, params model.BackendParams) (*model.Backend, error) {
	form := url.Values{
		"name":             {params.Name},
		"system_name":      {params.SystemName},
		"description":      {params.Description},
		"private_endpoint": {params.PrivateEndpoint},
	}
	var b model.Backend
	if err := c.doItem(ctx, http.MethodPost, "/backend_apis.json", form, "backend_api", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBackend never changes the system name.
func (c *Client) UpdateBackend(ctx context.Context, backendID int64, params model.BackendParams) (*model.Backend, error) {
	form := url.Values{
		"name":             {params.Name},
		"description":      {params.Description},
		"private_endpoint": {params.PrivateEndpoint},
	}
	var b model.Backend
	if err := c.doItem(ctx, http.MethodPut, "/backend_apis/"+itoa(backendID)+".json", form, "backend_api", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) DeleteBackend(ctx context.Context, backendID int64) error {
	return c.do(ctx, http.MethodDelete, "/backend_apis/"+itoa(backendID)+".json", nil, nil)
}

// ListBackendUsages decodes a bare array; this endpoint has no collection key.
func (c *Client) ListBackendUsages(ctx context.Context, productID int64) ([]model.BackendUsage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, usagesPath(productID), nil, &raw); err != nil {
		return nil, err
	}
	return unwrapItems[model.BackendUsage](raw, "backend_usage")
}

func (c *Client) CreateBackendUsage(ctx context.Context, productID, backendID int64, path string) (*model.BackendUsage, error) {
	form := url.Values{
		"backend_api_id": {itoa(backendID)},
		"path":           {path},
	}
	var u model.BackendUsage
	if err := c.doItem(ctx, http.MethodPost, usagesPath(productID), form, "backend_usage", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateBackendUsage(ctx context.Context, productID, usageID int64, path string) (*model.BackendUsage, error) {
	form := url.Values{"path": {path}}
	var u model.BackendUsage
	if err := c.doItem(ctx, http.MethodPut, usagePath(productID, usageID), form, "backend_usage", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteBackendUsage(ctx context.Context, productID, usageID int64) error {
	return c.do(ctx, http.MethodDelete, usagePath(productID, usageID), nil, nil)
}

func usagesPath(productID int64) string {
	return "/services/" + itoa(productID) + "/backend_usages.json"
}

func usagePath(productID, usageID int64) string {
	return "/services/" + itoa(productID) + "/backend_usages/" + itoa(usageID) + ".json"
}
