package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/reconcile"
	"github.com/section6nz/3scale-sync/internal/validate"
	"github.com/section6nz/3scale-sync/pkg/logging"
)

// Engine reconciles single products.
type Engine interface {
	SyncProduct(ctx context.Context, spec *model.ProductSpec) (*reconcile.Result, error)
	DeleteProduct(ctx context.Context, spec *model.ProductSpec) (*reconcile.Result, error)
}

// ProductReport is the outcome of one product.
type ProductReport struct {
	Name   string
	Result *reconcile.Result
	Err    error
}

// Report is the outcome of a whole catalog, in declaration order.
type Report struct {
	Environment string
	Products    []ProductReport
	Duration    time.Duration
}

// Failed returns the reports of the products that failed.
func (r *Report) Failed() []ProductReport {
	var failed []ProductReport
	for _, p := range r.Products {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}

// Runner applies a catalog product by product.
type Runner struct {
	engine   Engine
	parallel int
	stdout   io.Writer
}

// NewRunner returns a runner syncing at most parallel products at a time.
func NewRunner(engine Engine, parallel int, stdout io.Writer) *Runner {
	if parallel < 1 {
		parallel = 1
	}
	if stdout == nil {
		stdout = io.Discard
	}
	return &Runner{
		engine:   engine,
		parallel: parallel,
		stdout:   stdout,
	}
}

// Run validates the whole catalog, then syncs every product. A validation
// failure is returned before any product is touched. Product failures are
// recorded in the report and never stop the other products.
func (r *Runner) Run(ctx context.Context, catalog *model.Catalog) (*Report, error) {
	if err := validate.Catalog(catalog); err != nil {
		return nil, fmt.Errorf("pre-flight validation failed: %w", err)
	}
	return r.each(ctx, catalog, r.engine.SyncProduct), nil
}

// Delete removes every product of the catalog, one at a time.
func (r *Runner) Delete(ctx context.Context, catalog *model.Catalog) *Report {
	sequential := &Runner{engine: r.engine, parallel: 1, stdout: r.stdout}
	return sequential.each(ctx, catalog, r.engine.DeleteProduct)
}

type productFunc func(context.Context, *model.ProductSpec) (*reconcile.Result, error)

func (r *Runner) each(ctx context.Context, catalog *model.Catalog, fn productFunc) *Report {
	start := time.Now()
	report := &Report{
		Environment: catalog.Environment,
		Products:    make([]ProductReport, len(catalog.Products)),
	}

	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i := range catalog.Products {
		i := i
		spec := &catalog.Products[i]
		g.Go(func() error {
			fmt.Fprintf(r.stdout, "→ Product %s (%s)\n", spec.Name, catalog.Environment)
			res, err := fn(ctx, spec)
			if err != nil {
				logging.Error("runner", err, "product %s failed", spec.Name)
				fmt.Fprintf(r.stdout, "✗ Product %s failed: %v\n", spec.Name, err)
			} else {
				fmt.Fprintf(r.stdout, "✓ Product %s (%d changes)\n", spec.Name, len(res.Changes))
			}
			report.Products[i] = ProductReport{Name: spec.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	return report
}
