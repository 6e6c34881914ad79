package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

var emptyChain = json.RawMessage(`[]`)

// reconcilePolicies replaces the whole policy chain when it differs from the
// configured one. No policy file means an empty chain.
func reconcilePolicies(ctx context.Context, s *productSync) error {
	desired, source := emptyChain, "(none)"
	if s.spec.PolicyChain != nil {
		desired, source = s.spec.PolicyChain.Document, s.spec.PolicyChain.Path
	}

	current, err := s.api.FetchPolicyChain(ctx, s.productID())
	if err != nil {
		return fmt.Errorf("failed to fetch policy chain: %w", err)
	}
	same, err := sameJSON(current, desired)
	if err != nil {
		return err
	}
	if same {
		return nil
	}

	if err := s.api.UpdatePolicyChain(ctx, s.productID(), desired); err != nil {
		return fmt.Errorf("failed to update policy chain from %s: %w", source, err)
	}
	s.record("policy_chain", OpUpdate, source)
	return nil
}

// sameJSON compares two documents by value. An absent document equals [].
func sameJSON(a, b json.RawMessage) (bool, error) {
	var av, bv interface{}
	if err := json.Unmarshal(orEmpty(a), &av); err != nil {
		return false, fmt.Errorf("failed to decode policy chain: %w", err)
	}
	if err := json.Unmarshal(orEmpty(b), &bv); err != nil {
		return false, fmt.Errorf("failed to decode policy chain: %w", err)
	}
	return reflect.DeepEqual(av, bv), nil
}

func orEmpty(doc json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyChain
	}
	return trimmed
}
