package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/syncerr"
	"github.com/section6nz/3scale-sync/pkg/logging"
)

// DeleteProduct removes a product from the control plane: its backend usages,
// the product itself, then the backends the catalog declares for it. A
// backend still used by another product is kept.
func (e *Engine) DeleteProduct(ctx context.Context, spec *model.ProductSpec) (*Result, error) {
	start := time.Now()
	s := e.newProductSync(spec)
	defer func() { s.result.Duration = time.Since(start) }()

	product, err := e.api.FetchProduct(ctx, s.systemName)
	if err != nil {
		return s.result, fmt.Errorf("product %s: failed to fetch product: %w", spec.Name, err)
	}
	if product == nil {
		return s.result, fmt.Errorf("product %s: %w", spec.Name, &syncerr.NotFoundError{Kind: "product", Key: s.systemName})
	}
	s.product = product
	s.result.ProductID = product.ID

	usages, err := e.api.ListBackendUsages(ctx, product.ID)
	if err != nil {
		return s.result, fmt.Errorf("product %s: failed to list backend usages: %w", spec.Name, err)
	}
	for _, u := range usages {
		if err := e.api.DeleteBackendUsage(ctx, product.ID, u.ID); err != nil {
			return s.result, fmt.Errorf("product %s: failed to detach backend %d: %w", spec.Name, u.BackendID, err)
		}
		s.record("backend_usage", OpDelete, u.Path)
	}

	if err := e.api.DeleteProduct(ctx, product.ID); err != nil {
		return s.result, fmt.Errorf("product %s: failed to delete product: %w", spec.Name, err)
	}
	s.record("product", OpDelete, s.systemName)

	for _, ref := range spec.Backends {
		systemName := model.SystemName(model.BackendName(e.environment, ref))
		backend, err := e.api.FetchBackend(ctx, systemName)
		if err != nil {
			return s.result, fmt.Errorf("product %s: failed to fetch backend %s: %w", spec.Name, systemName, err)
		}
		if backend == nil {
			continue
		}
		err = e.api.DeleteBackend(ctx, backend.ID)
		if syncerr.IsConflict(err) {
			logging.Warn("reconcile", "product %s: keeping backend %s, it is still in use", spec.Name, systemName)
			continue
		}
		if err != nil {
			return s.result, fmt.Errorf("product %s: failed to delete backend %s: %w", spec.Name, systemName, err)
		}
		s.record("backend", OpDelete, systemName)
	}
	return s.result, nil
}
