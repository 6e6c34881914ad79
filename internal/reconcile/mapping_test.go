package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/observe"
	"github.com/section6nz/3scale-sync/internal/remote/remotetest"
)

// newSyncFor creates the product in fake and returns a sync positioned after
// the product step.
func newSyncFor(t *testing.T, fake *remotetest.Fake, spec *model.ProductSpec) *productSync {
	t.Helper()
	s := NewEngine(fake, env).newProductSync(spec)
	require.NoError(t, reconcileProduct(context.Background(), s))
	fake.ResetCalls()
	return s
}

func TestMappingConvergence(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := &model.ProductSpec{
		Name:      "Orders",
		ShortName: "orders",
		Mappings: []model.MappingSpec{
			{Method: "GET", Pattern: "/v1/foo"},
			{Method: "POST", Pattern: "/v1/foo"},
		},
	}
	s := newSyncFor(t, fake, spec)

	hits, err := fake.FetchHitsMetric(ctx, s.productID())
	require.NoError(t, err)
	for _, pattern := range []string{"/v1/foo$", "/v1/bar$"} {
		_, err := fake.CreateMappingRule(ctx, s.productID(), model.MappingRuleParams{HTTPMethod: "GET", Pattern: pattern, Delta: 1, MetricID: hits.ID})
		require.NoError(t, err)
	}
	fake.ResetCalls()

	require.NoError(t, reconcileMappings(ctx, s))

	mutations := fake.Mutations()
	require.Len(t, mutations, 2)
	assert.Equal(t, "DeleteMappingRule", mutations[0].Method)
	assert.Equal(t, remotetest.Call{Method: "CreateMappingRule", Key: "POST /v1/foo$"}, mutations[1])

	rules, err := fake.ListMappingRules(ctx, s.productID())
	require.NoError(t, err)
	var keys []string
	for _, r := range rules {
		keys = append(keys, observe.KeyOf(r).String())
	}
	assert.ElementsMatch(t, []string{"GET /v1/foo$", "POST /v1/foo$"}, keys)
}

func TestDuplicateDesiredRulesAreKept(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := &model.ProductSpec{
		Name:      "Orders",
		ShortName: "orders",
		Mappings:  []model.MappingSpec{{Method: "GET", Pattern: "/v1/foo"}},
	}
	s := newSyncFor(t, fake, spec)

	hits, err := fake.FetchHitsMetric(ctx, s.productID())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := fake.CreateMappingRule(ctx, s.productID(), model.MappingRuleParams{HTTPMethod: "GET", Pattern: "/v1/foo$", Delta: 1, MetricID: hits.ID})
		require.NoError(t, err)
	}
	fake.ResetCalls()

	require.NoError(t, reconcileMappings(ctx, s))
	assert.Empty(t, fake.Mutations())
	assert.Zero(t, fake.Count("FetchHitsMetric"))
}

func TestMappingsUpToDateSkipMetricLookup(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := &model.ProductSpec{Name: "Orders", ShortName: "orders"}
	s := newSyncFor(t, fake, spec)

	require.NoError(t, reconcileMappings(ctx, s))
	assert.Zero(t, fake.Count("FetchHitsMetric"))
	assert.Empty(t, fake.Mutations())
}

func TestDesiredMappings(t *testing.T) {
	spec := &model.ProductSpec{
		API: model.APISpec{PublicBasePath: "/store/"},
		OpenAPIMappings: []model.MappingSpec{
			{Method: "GET", Pattern: "/orders$"},
			{Method: "GET", Pattern: "/orders$"},
		},
		Mappings: []model.MappingSpec{
			{Method: "get", Pattern: "/orders"},
			{Method: "DELETE", Pattern: "/orders/{id}"},
		},
	}
	assert.Equal(t, []observe.MappingKey{
		{Method: "GET", Pattern: "/store/orders$"},
		{Method: "DELETE", Pattern: "/store/orders/{id}$"},
	}, DesiredMappings(spec))
}

func TestJoinPattern(t *testing.T) {
	tests := []struct {
		base, pattern, want string
	}{
		{base: "", pattern: "/v1/foo", want: "/v1/foo$"},
		{base: "/", pattern: "/v1/foo$", want: "/v1/foo$"},
		{base: "/pets", pattern: "/", want: "/pets/$"},
		{base: "/pets/", pattern: "/v1", want: "/pets/v1$"},
	}
	for _, tt := range tests {
		t.Run(tt.base+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinPattern(tt.base, tt.pattern))
		})
	}
}
