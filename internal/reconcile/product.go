package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

const deploymentSelfManaged = "self_managed"

// reconcileProduct creates the product or updates its name and description.
// The system name is never changed: it is the product's identity.
func reconcileProduct(ctx context.Context, s *productSync) error {
	existing, err := s.api.FetchProduct(ctx, s.systemName)
	if err != nil {
		return fmt.Errorf("failed to fetch product: %w", err)
	}

	switch {
	case existing == nil:
		created, err := s.api.CreateProduct(ctx, model.ProductParams{
			Name:             s.spec.Name,
			SystemName:       s.systemName,
			Description:      s.spec.Description,
			DeploymentOption: deploymentSelfManaged,
		})
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		s.product = created
		s.record("product", OpCreate, s.systemName)

	case existing.Name != s.spec.Name || existing.Description != s.spec.Description:
		updated, err := s.api.UpdateProduct(ctx, existing.ID, model.ProductUpdate{
			Name:        &s.spec.Name,
			Description: &s.spec.Description,
		})
		if err != nil {
			return fmt.Errorf("failed to update product %d: %w", existing.ID, err)
		}
		s.product = updated
		s.record("product", OpUpdate, s.systemName)

	default:
		s.product = existing
	}

	if s.product == nil || s.product.ID == 0 {
		return &syncerr.RemoteError{Op: "sync product " + s.systemName, Err: errors.New("control plane returned no product id")}
	}
	s.result.ProductID = s.product.ID
	return nil
}
