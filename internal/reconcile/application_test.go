package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/remote/remotetest"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

func seedApplication(t *testing.T, fake *remotetest.Fake, s *productSync, org, name, clientID string) *model.Application {
	t.Helper()
	ctx := context.Background()
	account, err := fake.CreateAccount(ctx, org)
	require.NoError(t, err)
	planName := model.ApplicationPlanName(env, s.spec)
	plan, err := fake.CreateApplicationPlan(ctx, s.productID(), model.ApplicationPlanParams{Name: planName, SystemName: model.SystemName(planName)})
	require.NoError(t, err)
	app, err := fake.CreateApplication(ctx, model.ApplicationParams{
		AccountID:   account.ID,
		PlanID:      plan.ID,
		Name:        name,
		Description: s.spec.Description,
		ClientID:    clientID,
	})
	require.NoError(t, err)
	fake.ResetCalls()
	return app
}

func TestApplicationConflictDeletesThenCreates(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := petStore()
	s := newSyncFor(t, fake, spec)
	seedApplication(t, fake, s, "alice", "dev_pet_store_v1_Application", "stale-client")

	require.NoError(t, reconcileApplications(ctx, s))

	assert.Equal(t, []string{"DeleteApplication", "CreateApplication"}, methods(fake.Mutations()))
	apps, err := fake.ListApplications(ctx, 0)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "alice-pets", apps[0].ClientID)
	assert.Equal(t, "s3cret", apps[0].ClientSecret)
}

func TestApplicationNameTakenByAnotherProduct(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := petStore()
	s := newSyncFor(t, fake, spec)

	other, err := fake.CreateProduct(ctx, model.ProductParams{Name: "Old", SystemName: "old"})
	require.NoError(t, err)
	oldPlan, err := fake.CreateApplicationPlan(ctx, other.ID, model.ApplicationPlanParams{Name: "old", SystemName: "old"})
	require.NoError(t, err)
	account, err := fake.CreateAccount(ctx, "alice")
	require.NoError(t, err)
	_, err = fake.CreateApplication(ctx, model.ApplicationParams{
		AccountID: account.ID,
		PlanID:    oldPlan.ID,
		Name:      "dev_pet_store_v1_Application",
	})
	require.NoError(t, err)
	fake.ResetCalls()

	require.NoError(t, reconcileApplications(ctx, s))

	assert.Equal(t, []string{"CreateApplicationPlan", "DeleteApplication", "CreateApplication"}, methods(fake.Mutations()))
	apps, err := fake.ListApplications(ctx, 0)
	require.NoError(t, err)
	var named []model.Application
	for _, a := range apps {
		if a.Name == "dev_pet_store_v1_Application" {
			named = append(named, a)
		}
	}
	require.Len(t, named, 1)
	assert.Equal(t, s.productID(), named[0].ProductID)
	assert.Equal(t, "alice-pets", named[0].ClientID)
}

func TestApplicationMatches(t *testing.T) {
	account := &model.Account{ID: 7}
	plan := &model.ApplicationPlan{ID: 9}
	base := model.Application{ProductID: 3, AccountID: 7, PlanID: 9, Description: "Pets", ClientID: "alice-pets", ClientSecret: "s3cret"}
	spec := model.ApplicationSpec{Account: "alice", ClientID: "alice-pets", ClientSecret: "s3cret"}

	tests := []struct {
		name   string
		mutate func(*model.Application)
		want   bool
	}{
		{name: "identical", mutate: func(*model.Application) {}, want: true},
		{name: "other product", mutate: func(a *model.Application) { a.ProductID = 4 }, want: false},
		{name: "other account", mutate: func(a *model.Application) { a.AccountID = 8 }, want: false},
		{name: "other plan", mutate: func(a *model.Application) { a.PlanID = 10 }, want: false},
		{name: "other description", mutate: func(a *model.Application) { a.Description = "" }, want: false},
		{name: "other client id", mutate: func(a *model.Application) { a.ClientID = "bob" }, want: false},
		{name: "other secret", mutate: func(a *model.Application) { a.ClientSecret = "old" }, want: false},
		{name: "secret not reported", mutate: func(a *model.Application) { a.ClientSecret = "" }, want: true},
		{name: "application id only", mutate: func(a *model.Application) {
			a.ClientID, a.ApplicationID, a.ClientSecret = "", "alice-pets", ""
		}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := base
			tt.mutate(&app)
			assert.Equal(t, tt.want, applicationMatches(app, spec, 3, account, plan, "Pets"))
		})
	}
}

func TestMatchingApplicationIsKept(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := petStore()
	spec.Applications[0].ClientSecret = ""
	s := newSyncFor(t, fake, spec)
	seedApplication(t, fake, s, "alice", "dev_pet_store_v1_Application", "alice-pets")

	require.NoError(t, reconcileApplications(ctx, s))
	assert.Empty(t, fake.Mutations())
}

func TestUndeclaredApplicationsAreDeleted(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := petStore()
	spec.Applications = nil
	s := newSyncFor(t, fake, spec)
	seedApplication(t, fake, s, "alice", "legacy", "")

	require.NoError(t, reconcileApplications(ctx, s))
	assert.Equal(t, []string{"DeleteApplication"}, methods(fake.Mutations()))
	assert.Zero(t, fake.Count("CreateApplicationPlan"))
}

func TestAccountCreatedOncePerSync(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := petStore()
	spec.Applications = []model.ApplicationSpec{
		{Account: "bob", Name: "bob-one"},
		{Account: "bob", Name: "bob-two"},
	}
	s := newSyncFor(t, fake, spec)

	require.NoError(t, reconcileApplications(ctx, s))
	assert.Equal(t, 1, fake.Count("CreateAccount"))
	assert.Equal(t, 1, fake.Count("ListAccounts"))
	assert.Equal(t, 2, fake.Count("CreateApplication"))
}

func TestAccountMissingAfterCreate(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	s := newSyncFor(t, fake, petStore())
	fake.Fail("CreateAccount", &syncerr.RemoteError{Op: "POST signup", StatusCode: 422, Body: "taken"})

	err := reconcileApplications(ctx, s)
	assert.True(t, syncerr.IsNotFound(err))
	assert.Zero(t, fake.Count("CreateApplication"))
}

func TestPlanCreatedOnce(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := petStore()
	spec.Applications = []model.ApplicationSpec{
		{Account: "alice", Name: "one"},
		{Account: "alice", Name: "two"},
	}
	s := newSyncFor(t, fake, spec)

	require.NoError(t, reconcileApplications(ctx, s))
	assert.Equal(t, 1, fake.Count("CreateApplicationPlan"))

	fake.ResetCalls()
	again := NewEngine(fake, env).newProductSync(spec)
	again.product = s.product
	require.NoError(t, reconcileApplications(ctx, again))
	assert.Empty(t, fake.Mutations())
}
