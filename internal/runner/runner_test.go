package runner

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/reconcile"
	"github.com/section6nz/3scale-sync/internal/remote/remotetest"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

func catalog(shortNames ...string) *model.Catalog {
	c := &model.Catalog{Environment: "dev"}
	for _, n := range shortNames {
		c.Products = append(c.Products, model.ProductSpec{
			Name:      "Product " + n,
			ShortName: n,
			Version:   1,
			API: model.APISpec{
				PublicBasePath: "/" + n,
				Authentication: model.AuthSpec{AuthType: "app_id_key", CredentialsLocation: "headers"},
			},
			Backends: []model.BackendRef{{ID: n, PrivateBaseURL: "https://" + n + ".example.com", Path: "/"}},
			Mappings: []model.MappingSpec{{Method: "GET", Pattern: "/"}},
		})
	}
	return c
}

func TestRunSyncsEveryProduct(t *testing.T) {
	fake := remotetest.New()
	var out bytes.Buffer
	r := NewRunner(reconcile.NewEngine(fake, "dev"), 2, &out)

	report, err := r.Run(context.Background(), catalog("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, report.Products, 3)
	assert.Empty(t, report.Failed())
	for i, name := range []string{"Product a", "Product b", "Product c"} {
		assert.Equal(t, name, report.Products[i].Name)
		assert.True(t, report.Products[i].Result.Promoted)
	}
	assert.Contains(t, out.String(), "✓ Product b")

	products, err := fake.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestRunFailsBeforeAnyRemoteCall(t *testing.T) {
	fake := remotetest.New()
	r := NewRunner(reconcile.NewEngine(fake, "dev"), 1, nil)

	report, err := r.Run(context.Background(), catalog("a", "a"))
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, syncerr.IsValidation(err))
	assert.Contains(t, err.Error(), "Product a, Product a")
	assert.Empty(t, fake.Calls())
}

// failingFake rejects product creation for one system name.
type failingFake struct {
	*remotetest.Fake
	systemName string
}

func (f *failingFake) CreateProduct(ctx context.Context, params model.ProductParams) (*model.Product, error) {
	if params.SystemName == f.systemName {
		return nil, &syncerr.RemoteError{Op: "POST services", StatusCode: http.StatusForbidden, Body: "limit reached"}
	}
	return f.Fake.CreateProduct(ctx, params)
}

func TestRunIsolatesProductFailures(t *testing.T) {
	fake := &failingFake{Fake: remotetest.New(), systemName: "b"}
	r := NewRunner(reconcile.NewEngine(fake, "dev"), 1, nil)

	report, err := r.Run(context.Background(), catalog("a", "b", "c"))
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "Product b", failed[0].Name)
	assert.Equal(t, http.StatusForbidden, syncerr.StatusCode(failed[0].Err))
	assert.NoError(t, report.Products[2].Err)
}

// slowEngine records how many products run at once.
type slowEngine struct {
	mu       sync.Mutex
	order    []string
	running  atomic.Int32
	maxSeen  atomic.Int32
	deletion bool
}

func (e *slowEngine) SyncProduct(ctx context.Context, spec *model.ProductSpec) (*reconcile.Result, error) {
	n := e.running.Add(1)
	defer e.running.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	e.mu.Lock()
	e.order = append(e.order, spec.ShortName)
	e.mu.Unlock()
	if spec.ShortName == "b" {
		return &reconcile.Result{Product: spec.Name}, errors.New("boom")
	}
	return &reconcile.Result{Product: spec.Name}, nil
}

func (e *slowEngine) DeleteProduct(ctx context.Context, spec *model.ProductSpec) (*reconcile.Result, error) {
	e.deletion = true
	return e.SyncProduct(ctx, spec)
}

func TestRunRespectsParallelism(t *testing.T) {
	engine := &slowEngine{}
	report, err := NewRunner(engine, 2, nil).Run(context.Background(), catalog("a", "b", "c", "d"))
	require.NoError(t, err)

	assert.LessOrEqual(t, engine.maxSeen.Load(), int32(2))
	assert.Len(t, report.Failed(), 1)
	assert.Equal(t, "Product d", report.Products[3].Name)
}

func TestRunSequentialKeepsDeclarationOrder(t *testing.T) {
	engine := &slowEngine{}
	_, err := NewRunner(engine, 0, nil).Run(context.Background(), catalog("c", "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, engine.order)
	assert.Equal(t, int32(1), engine.maxSeen.Load())
}

func TestDeleteIsSequential(t *testing.T) {
	engine := &slowEngine{}
	report := NewRunner(engine, 4, nil).Delete(context.Background(), catalog("a", "b", "c"))
	assert.True(t, engine.deletion)
	assert.Equal(t, int32(1), engine.maxSeen.Load())
	assert.Len(t, report.Failed(), 1)
}
