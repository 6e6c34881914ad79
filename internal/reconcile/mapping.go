package reconcile

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/observe"
)

// DesiredMappings is the product's OpenAPI-derived mappings followed by its
// declared ones, under the public base path, end-anchored and without
// duplicates.
func DesiredMappings(spec *model.ProductSpec) []observe.MappingKey {
	seen := sets.New[observe.MappingKey]()
	var out []observe.MappingKey
	add := func(mappings []model.MappingSpec) {
		for _, m := range mappings {
			k := observe.MappingKey{
				Method:  strings.ToUpper(m.Method),
				Pattern: JoinPattern(spec.API.PublicBasePath, m.Pattern),
			}
			if seen.Has(k) {
				continue
			}
			seen.Insert(k)
			out = append(out, k)
		}
	}
	add(spec.OpenAPIMappings)
	add(spec.Mappings)
	return out
}

// JoinPattern prefixes pattern with base and anchors it with "$".
func JoinPattern(base, pattern string) string {
	p := strings.TrimSuffix(base, "/") + pattern
	if !strings.HasSuffix(p, "$") {
		p += "$"
	}
	return p
}

// reconcileMappings deletes every rule no desired mapping matches, then
// creates the desired mappings missing from the product. Rules that are
// already right are never touched.
func reconcileMappings(ctx context.Context, s *productSync) error {
	desired := DesiredMappings(s.spec)
	want := sets.New(desired...)

	observed, err := s.api.ListMappingRules(ctx, s.productID())
	if err != nil {
		return fmt.Errorf("failed to list mapping rules: %w", err)
	}

	present := observe.IndexMappingRules(observed)
	for _, r := range observed {
		k := observe.KeyOf(r)
		if want.Has(k) {
			continue
		}
		if err := s.api.DeleteMappingRule(ctx, s.productID(), r.ID); err != nil {
			return fmt.Errorf("failed to delete mapping rule %s: %w", k, err)
		}
		s.record("mapping_rule", OpDelete, k.String())
	}

	var missing []observe.MappingKey
	for _, k := range desired {
		if len(present[k]) == 0 {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	hits, err := s.api.FetchHitsMetric(ctx, s.productID())
	if err != nil {
		return fmt.Errorf("failed to resolve hits metric: %w", err)
	}
	for _, k := range missing {
		_, err := s.api.CreateMappingRule(ctx, s.productID(), model.MappingRuleParams{
			HTTPMethod: k.Method,
			Pattern:    k.Pattern,
			Delta:      1,
			MetricID:   hits.ID,
		})
		if err != nil {
			return fmt.Errorf("failed to create mapping rule %s: %w", k, err)
		}
		s.record("mapping_rule", OpCreate, k.String())
	}
	return nil
}
