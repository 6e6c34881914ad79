// Package reconcile converges one product of the catalog onto the control
// plane. Each entity type has its own reconciler; Engine.SyncProduct runs
// them in dependency order, stopping at the first failure. Nothing already
// applied is rolled back: re-running the sync is the recovery path.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/section6nz/3scale-sync/internal/metrics"
	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/observe"
	"github.com/section6nz/3scale-sync/internal/remote"
	"github.com/section6nz/3scale-sync/pkg/logging"
)

// Operations recorded in a Change.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpPromote = "promote"
)

// Change is one mutation applied to the control plane.
type Change struct {
	Entity string
	Op     string
	Key    string
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s %s", c.Op, c.Entity, c.Key)
}

// Result describes what one product sync did. It is returned, partially
// filled, together with the error when a step fails.
type Result struct {
	Product    string
	SystemName string
	ProductID  int64
	Duration   time.Duration
	Changes    []Change
	Promoted   bool
	// FailedStep names the step that failed, if any.
	FailedStep string
}

// Changed reports whether the sync mutated anything.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// Engine reconciles products of one environment.
type Engine struct {
	api         remote.API
	environment string
	metrics     *metrics.Recorder
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics counts applied changes and product durations in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// NewEngine creates an engine for environment on api.
func NewEngine(api remote.API, environment string, opts ...Option) *Engine {
	e := &Engine{api: api, environment: environment}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncProduct converges spec onto the control plane.
func (e *Engine) SyncProduct(ctx context.Context, spec *model.ProductSpec) (*Result, error) {
	start := time.Now()
	s := e.newProductSync(spec)
	logging.Debug("reconcile", "product %s: steps %s", spec.Name, strings.Join(stepNames(), ", "))

	err := s.run(ctx)
	s.result.Duration = time.Since(start)
	e.metrics.ObserveProduct(s.result.Duration, err != nil)
	if err != nil {
		return s.result, fmt.Errorf("product %s: %s: %w", spec.Name, s.result.FailedStep, err)
	}
	logging.Info("reconcile", "product %s synced in %s with %d changes", spec.Name, s.result.Duration.Round(time.Millisecond), len(s.result.Changes))
	return s.result, nil
}

// productSync is the state shared by the steps of one SyncProduct call.
type productSync struct {
	*Engine
	spec       *model.ProductSpec
	systemName string
	product    *model.Product
	snapshot   *observe.Snapshot
	result     *Result
}

func (e *Engine) newProductSync(spec *model.ProductSpec) *productSync {
	systemName := spec.SystemName
	if systemName == "" {
		systemName = model.SystemName(spec.ShortName)
	}
	return &productSync{
		Engine:     e,
		spec:       spec,
		systemName: systemName,
		snapshot:   observe.NewSnapshot(e.api),
		result:     &Result{Product: spec.Name, SystemName: systemName},
	}
}

func (s *productSync) run(ctx context.Context) error {
	for _, st := range orderedSteps {
		if err := ctx.Err(); err != nil {
			s.result.FailedStep = st.name
			return err
		}
		logging.Debug("reconcile", "product %s: %s", s.spec.Name, st.name)
		if err := st.run(ctx, s); err != nil {
			s.result.FailedStep = st.name
			return err
		}
	}
	return nil
}

func (s *productSync) productID() int64 {
	return s.product.ID
}

func (s *productSync) record(entity, op, key string) {
	s.result.Changes = append(s.result.Changes, Change{Entity: entity, Op: op, Key: key})
	s.metrics.ObserveChange(entity, op)
	logging.Info("reconcile", "product %s: %s %s %s", s.spec.Name, op, entity, key)
}
