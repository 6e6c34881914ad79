package reconcile

import (
	"context"
	"fmt"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/syncerr"
	"github.com/section6nz/3scale-sync/internal/validate"
)

// reconcileAuth applies the authentication mode, then the proxy settings,
// then the OIDC flows. Each is written only when it differs.
func reconcileAuth(ctx context.Context, s *productSync) error {
	auth := s.spec.API.Authentication

	backendVersion, ok := validate.AuthTypes[auth.AuthType]
	if !ok {
		return &syncerr.ValidationError{Rule: "unsupported authType", Values: []string{auth.AuthType}}
	}
	if s.product.BackendVersion != backendVersion {
		updated, err := s.api.UpdateProduct(ctx, s.productID(), model.ProductUpdate{BackendVersion: &backendVersion})
		if err != nil {
			return fmt.Errorf("failed to set authentication mode %s: %w", auth.AuthType, err)
		}
		s.product = updated
		s.record("authentication", OpUpdate, auth.AuthType)
	}

	current, err := s.api.FetchAuthConfig(ctx, s.productID())
	if err != nil {
		return fmt.Errorf("failed to fetch proxy settings: %w", err)
	}
	desired := model.ProxySettings{
		Endpoint:            s.spec.ProductionPublicURL,
		SandboxEndpoint:     s.spec.StagingPublicURL,
		CredentialsLocation: auth.CredentialsLocation,
		OIDCIssuerEndpoint:  auth.IssuerURL,
		OIDCIssuerType:      auth.IssuerType,
	}
	if proxyNeedsUpdate(*current, desired) {
		if _, err := s.api.UpdateAuthConfig(ctx, s.productID(), desired); err != nil {
			return fmt.Errorf("failed to update proxy settings: %w", err)
		}
		s.record("proxy", OpUpdate, s.systemName)
	}

	if auth.OIDCFlows == nil {
		return nil
	}
	return reconcileOIDCFlows(ctx, s, *auth.OIDCFlows)
}

// proxyNeedsUpdate compares only the fields desired sets; empty fields are
// not sent and so never differ.
func proxyNeedsUpdate(current, desired model.ProxySettings) bool {
	differs := func(have, want string) bool {
		return want != "" && have != want
	}
	return differs(current.Endpoint, desired.Endpoint) ||
		differs(current.SandboxEndpoint, desired.SandboxEndpoint) ||
		differs(current.CredentialsLocation, desired.CredentialsLocation) ||
		differs(current.OIDCIssuerEndpoint, desired.OIDCIssuerEndpoint) ||
		differs(current.OIDCIssuerType, desired.OIDCIssuerType)
}

// reconcileOIDCFlows replaces all four flags; unset flags are disabled.
func reconcileOIDCFlows(ctx context.Context, s *productSync, flows model.OIDCFlows) error {
	desired := model.OIDCConfiguration{
		StandardFlowEnabled:       flows.StandardFlow,
		ImplicitFlowEnabled:       flows.ImplicitFlow,
		ServiceAccountsEnabled:    flows.ServiceAccounts,
		DirectAccessGrantsEnabled: flows.DirectAccessGrants,
	}
	current, err := s.api.FetchOIDCConfig(ctx, s.productID())
	if err != nil {
		return fmt.Errorf("failed to fetch OIDC configuration: %w", err)
	}
	if *current == desired {
		return nil
	}
	if _, err := s.api.UpdateOIDCConfig(ctx, s.productID(), desired); err != nil {
		return fmt.Errorf("failed to update OIDC configuration: %w", err)
	}
	s.record("oidc", OpUpdate, s.systemName)
	return nil
}
