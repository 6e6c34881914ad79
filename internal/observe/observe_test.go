package observe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/remote/remotetest"
)

func TestSnapshotFetchesOnceAndCopies(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	_, err := fake.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	s := NewSnapshot(fake)
	first, err := s.Accounts(ctx)
	require.NoError(t, err)
	first[0].OrgName = "mallory"

	a, err := s.FindAccount(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, a)

	missing, err := s.FindAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, 1, fake.Count("ListAccounts"))
}

func TestUsageForBackend(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	p, err := fake.CreateProduct(ctx, model.ProductParams{Name: "Pets", SystemName: "pets"})
	require.NoError(t, err)
	b, err := fake.CreateBackend(ctx, model.BackendParams{Name: "b", SystemName: "b"})
	require.NoError(t, err)
	_, err = fake.CreateBackendUsage(ctx, p.ID, b.ID, "/v1")
	require.NoError(t, err)

	s := NewSnapshot(fake)
	u, err := s.UsageForBackend(ctx, p.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "/v1", u.Path)

	none, err := s.UsageForBackend(ctx, p.ID, b.ID+100)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, 1, fake.Count("ListBackendUsages"))
}

func TestApplicationsByProduct(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	acct, err := fake.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	var products []*model.Product
	for _, name := range []string{"pets", "stores"} {
		p, err := fake.CreateProduct(ctx, model.ProductParams{Name: name, SystemName: name})
		require.NoError(t, err)
		plan, err := fake.CreateApplicationPlan(ctx, p.ID, model.ApplicationPlanParams{Name: "plan", SystemName: "plan"})
		require.NoError(t, err)
		_, err = fake.CreateApplication(ctx, model.ApplicationParams{AccountID: acct.ID, PlanID: plan.ID, Name: name + "-app"})
		require.NoError(t, err)
		products = append(products, p)
	}

	all, err := Applications(ctx, fake)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	apps := ForProduct(all, products[1].ID)
	require.Len(t, apps, 1)
	assert.Equal(t, "stores-app", apps[0].Name)
	assert.Empty(t, ForProduct(all, 0))
}

func TestIndexMappingRules(t *testing.T) {
	idx := IndexMappingRules([]model.MappingRule{
		{ID: 1, HTTPMethod: "GET", Pattern: "/v1/foo$"},
		{ID: 2, HTTPMethod: "GET", Pattern: "/v1/foo$"},
		{ID: 3, HTTPMethod: "POST", Pattern: "/v1/foo$"},
	})
	assert.Len(t, idx, 2)
	assert.Len(t, idx[MappingKey{Method: "GET", Pattern: "/v1/foo$"}], 2)
	assert.Equal(t, "POST /v1/foo$", KeyOf(model.MappingRule{HTTPMethod: "POST", Pattern: "/v1/foo$"}).String())
}
