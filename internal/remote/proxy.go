package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

func (c *Client) FetchAuthConfig(ctx context.Context, productID int64) (*model.ProxySettings, error) {
	var s model.ProxySettings
	if err := c.doItem(ctx, http.MethodGet, proxyPath(productID, ".json"), nil, "proxy", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateAuthConfig sends only the non-empty fields of settings.
func (c *Client) UpdateAuthConfig(ctx context.Context, productID int64, settings model.ProxySettings) (*model.ProxySettings, error) {
	form := url.Values{}
	set := func(key, value string) {
		if value != "" {
			form.Set(key, value)
		}
	}
	set("endpoint", settings.Endpoint)
	set("sandbox_endpoint", settings.SandboxEndpoint)
	set("credentials_location", settings.CredentialsLocation)
	set("oidc_issuer_endpoint", settings.OIDCIssuerEndpoint)
	set("oidc_issuer_type", settings.OIDCIssuerType)

	var s model.ProxySettings
	if err := c.doItem(ctx, http.MethodPatch, proxyPath(productID, ".json"), form, "proxy", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) FetchOIDCConfig(ctx context.Context, productID int64) (*model.OIDCConfiguration, error) {
	var o model.OIDCConfiguration
	if err := c.doItem(ctx, http.MethodGet, proxyPath(productID, "/oidc_configuration.json"), nil, "oidc_configuration", &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOIDCConfig(ctx context.Context, productID int64, cfg model.OIDCConfiguration) (*model.OIDCConfiguration, error) {
	form := url.Values{
		"standard_flow_enabled":        {strconv.FormatBool(cfg.StandardFlowEnabled)},
		"implicit_flow_enabled":        {strconv.FormatBool(cfg.ImplicitFlowEnabled)},
		"service_accounts_enabled":     {strconv.FormatBool(cfg.ServiceAccountsEnabled)},
		"direct_access_grants_enabled": {strconv.FormatBool(cfg.DirectAccessGrantsEnabled)},
	}
	var o model.OIDCConfiguration
	if err := c.doItem(ctx, http.MethodPatch, proxyPath(productID, "/oidc_configuration.json"), form, "oidc_configuration", &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) FetchPolicyChain(ctx context.Context, productID int64) (json.RawMessage, error) {
	var envelope struct {
		PoliciesConfig json.RawMessage `json:"policies_config"`
	}
	if err := c.do(ctx, http.MethodGet, proxyPath(productID, "/policies.json"), nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.PoliciesConfig, nil
}

func (c *Client) UpdatePolicyChain(ctx context.Context, productID int64, chain json.RawMessage) error {
	if !json.Valid(chain) {
		return &syncerr.RemoteError{Op: "PUT policies", Err: fmt.Errorf("policy chain is not valid JSON")}
	}
	form := url.Values{"policies_config": {string(chain)}}
	return c.do(ctx, http.MethodPut, proxyPath(productID, "/policies.json"), form, nil)
}

func (c *Client) FetchLatestProxyConfig(ctx context.Context, productID int64, env string) (*model.ProxyConfigVersion, error) {
	var v model.ProxyConfigVersion
	err := c.doItem(ctx, http.MethodGet, proxyPath(productID, "/configs/"+env+"/latest.json"), nil, "proxy_config", &v)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) PromoteProxyConfig(ctx context.Context, productID int64, version int, to string) error {
	path := proxyPath(productID, "/configs/"+model.EnvironmentSandbox+"/"+strconv.Itoa(version)+"/promote.json")
	return c.do(ctx, http.MethodPost, path, url.Values{"to": {to}}, nil)
}

func proxyPath(productID int64, suffix string) string {
	return "/services/" + itoa(productID) + "/proxy" + suffix
}
