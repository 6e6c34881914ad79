package reconcile

import (
	"context"
	"fmt"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/remote"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

// reconcileBackends makes sure every declared backend exists and is mounted
// on the product at its path. Backends and usages missing from the catalog
// are left in place; the delete command removes them.
func reconcileBackends(ctx context.Context, s *productSync) error {
	for _, ref := range s.spec.Backends {
		name := model.BackendName(s.environment, ref)
		params := model.BackendParams{
			Name:            name,
			SystemName:      model.SystemName(name),
			Description:     s.spec.Description,
			PrivateEndpoint: ref.PrivateBaseURL,
		}

		backend, op, err := EnsureBackend(ctx, s.api, params)
		if err != nil {
			return err
		}
		if op != "" {
			s.record("backend", op, params.SystemName)
		}

		if err := reconcileUsage(ctx, s, backend, ref); err != nil {
			return err
		}
	}
	return nil
}

// EnsureBackend fetches or creates the backend named by params and updates
// it when its description or endpoint differ. A create rejected because the
// backend already exists falls back to the update path. The returned op is
// OpCreate, OpUpdate or "" when nothing was written.
func EnsureBackend(ctx context.Context, api remote.API, params model.BackendParams) (*model.Backend, string, error) {
	existing, err := api.FetchBackend(ctx, params.SystemName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch backend %s: %w", params.SystemName, err)
	}

	if existing == nil {
		created, err := api.CreateBackend(ctx, params)
		if err == nil {
			return created, OpCreate, nil
		}
		if !syncerr.IsConflict(err) {
			return nil, "", fmt.Errorf("failed to create backend %s: %w", params.SystemName, err)
		}
		existing, err = api.FetchBackend(ctx, params.SystemName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch backend %s: %w", params.SystemName, err)
		}
		if existing == nil {
			return nil, "", &syncerr.NotFoundError{Kind: "backend", Key: params.SystemName}
		}
	}

	if existing.Name == params.Name && existing.Description == params.Description &&
		existing.PrivateEndpoint == params.PrivateEndpoint {
		return existing, "", nil
	}

	updated, err := api.UpdateBackend(ctx, existing.ID, params)
	if err != nil {
		return nil, "", fmt.Errorf("failed to update backend %s: %w", params.SystemName, err)
	}
	return updated, OpUpdate, nil
}

func reconcileUsage(ctx context.Context, s *productSync, backend *model.Backend, ref model.BackendRef) error {
	usage, err := s.snapshot.UsageForBackend(ctx, s.productID(), backend.ID)
	if err != nil {
		return err
	}

	switch {
	case usage == nil:
		if _, err := s.api.CreateBackendUsage(ctx, s.productID(), backend.ID, ref.Path); err != nil {
			return fmt.Errorf("failed to attach backend %s at %s: %w", backend.SystemName, ref.Path, err)
		}
		s.record("backend_usage", OpCreate, ref.ID+" "+ref.Path)
	case usage.Path != ref.Path:
		if _, err := s.api.UpdateBackendUsage(ctx, s.productID(), usage.ID, ref.Path); err != nil {
			return fmt.Errorf("failed to move backend %s to %s: %w", backend.SystemName, ref.Path, err)
		}
		s.record("backend_usage", OpUpdate, ref.ID+" "+ref.Path)
	}
	return nil
}
