package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/remote/remotetest"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

func TestPromoteConflictIsNotAnError(t *testing.T) {
	fake := remotetest.New()
	fake.Fail("PromoteProxyConfig", &syncerr.RemoteError{Op: "POST promote", StatusCode: http.StatusUnprocessableEntity, Body: "nothing to promote"})

	res, err := NewEngine(fake, env).SyncProduct(context.Background(), petStore())
	require.NoError(t, err)
	assert.False(t, res.Promoted)
	assert.Equal(t, 1, fake.Count("PromoteProxyConfig"))
}

func TestPromoteFailureCarriesBody(t *testing.T) {
	fake := remotetest.New()
	fake.Fail("PromoteProxyConfig", &syncerr.RemoteError{Op: "POST promote", StatusCode: http.StatusBadGateway, Body: "upstream unavailable"})

	res, err := NewEngine(fake, env).SyncProduct(context.Background(), petStore())
	require.Error(t, err)
	assert.Equal(t, "promote", res.FailedStep)

	var re *syncerr.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "upstream unavailable", re.Body)
}

func TestPromoteRetriesUnpublishedConfig(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	engine := NewEngine(fake, env)

	// A run that staged changes but failed to promote leaves production behind.
	fake.Fail("PromoteProxyConfig", &syncerr.RemoteError{Op: "POST promote", StatusCode: http.StatusBadGateway})
	_, err := engine.SyncProduct(ctx, petStore())
	require.Error(t, err)
	fake.Fail("PromoteProxyConfig", nil)
	fake.ResetCalls()

	res, err := engine.SyncProduct(ctx, petStore())
	require.NoError(t, err)
	assert.True(t, res.Promoted)
	assert.Equal(t, []string{"UpdateAuthConfig", "PromoteProxyConfig"}, methods(fake.Mutations()))
}

func TestPromoteWithoutStagingConfig(t *testing.T) {
	ctx := context.Background()
	fake := &noStaging{Fake: remotetest.New()}
	s := NewEngine(fake, env).newProductSync(petStore())
	require.NoError(t, reconcileProduct(ctx, s))
	s.record("product", OpUpdate, "forced")

	err := promote(ctx, s)
	assert.True(t, syncerr.IsNotFound(err))
}

type noStaging struct {
	*remotetest.Fake
}

func (n *noStaging) FetchLatestProxyConfig(ctx context.Context, productID int64, environment string) (*model.ProxyConfigVersion, error) {
	return nil, nil
}

func TestPolicyChainReset(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.New()
	spec := petStore()
	s := newSyncFor(t, fake, spec)
	require.NoError(t, fake.UpdatePolicyChain(ctx, s.productID(), json.RawMessage(`[{"name":"cors"}]`)))
	fake.ResetCalls()

	spec.PolicyChain = nil
	require.NoError(t, reconcilePolicies(ctx, s))
	assert.Equal(t, []string{"UpdatePolicyChain"}, methods(fake.Mutations()))

	chain, err := fake.FetchPolicyChain(ctx, s.productID())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(chain))
}

func TestSameJSON(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{a: `[{"a":1,"b":2}]`, b: `[ {"b":2, "a":1} ]`, want: true},
		{a: ``, b: `[]`, want: true},
		{a: `null`, b: `[]`, want: true},
		{a: `[{"a":1}]`, b: `[{"a":2}]`, want: false},
		{a: `[1,2]`, b: `[2,1]`, want: false},
	}
	for _, tt := range tests {
		got, err := sameJSON(json.RawMessage(tt.a), json.RawMessage(tt.b))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.a, tt.b)
	}
}
