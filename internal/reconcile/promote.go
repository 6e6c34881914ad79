package reconcile

import (
	"context"
	"fmt"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/syncerr"
	"github.com/section6nz/3scale-sync/pkg/logging"
)

// promote publishes the latest staging configuration to production. It is
// skipped when this sync changed nothing and production already serves the
// latest staging version. A 422 from the control plane means there was
// nothing to promote.
func promote(ctx context.Context, s *productSync) error {
	if !s.result.Changed() {
		current, err := promotedVersions(ctx, s)
		if err != nil {
			return err
		}
		if current {
			logging.Debug("reconcile", "product %s: production is up to date", s.spec.Name)
			return nil
		}
	}

	// Staging only gets a configuration version once the proxy is written.
	settings, err := s.api.FetchAuthConfig(ctx, s.productID())
	if err != nil {
		return fmt.Errorf("failed to fetch proxy settings: %w", err)
	}
	noop := model.ProxySettings{CredentialsLocation: settings.CredentialsLocation}
	if _, err := s.api.UpdateAuthConfig(ctx, s.productID(), noop); err != nil {
		return fmt.Errorf("failed to stage proxy configuration: %w", err)
	}

	latest, err := s.api.FetchLatestProxyConfig(ctx, s.productID(), model.EnvironmentSandbox)
	if err != nil {
		return fmt.Errorf("failed to fetch latest staging configuration: %w", err)
	}
	if latest == nil {
		return &syncerr.NotFoundError{Kind: "staging configuration", Key: s.systemName}
	}

	err = s.api.PromoteProxyConfig(ctx, s.productID(), latest.Version, model.EnvironmentProduction)
	if syncerr.IsConflict(err) {
		logging.Warn("reconcile", "product %s: not promoting configuration %d, nothing changed", s.spec.Name, latest.Version)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to promote configuration %d: %w", latest.Version, err)
	}
	s.result.Promoted = true
	s.record("proxy_config", OpPromote, fmt.Sprintf("v%d", latest.Version))
	return nil
}

// promotedVersions reports whether production serves the latest staging version.
func promotedVersions(ctx context.Context, s *productSync) (bool, error) {
	sandbox, err := s.api.FetchLatestProxyConfig(ctx, s.productID(), model.EnvironmentSandbox)
	if err != nil {
		return false, fmt.Errorf("failed to fetch latest staging configuration: %w", err)
	}
	production, err := s.api.FetchLatestProxyConfig(ctx, s.productID(), model.EnvironmentProduction)
	if err != nil {
		return false, fmt.Errorf("failed to fetch latest production configuration: %w", err)
	}
	return sandbox != nil && production != nil && sandbox.Version == production.Version, nil
}
