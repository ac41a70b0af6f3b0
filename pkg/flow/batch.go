package flow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/value"
)

// DefaultConcurrency is the usual limit for parallel batches.
const DefaultConcurrency = 50

// NewBatchNode creates a sync node whose Prep returns a list; Exec runs once
// per item, in order, and Post receives the list of results.
func NewBatchNode(logic Logic, opts ...NodeOption) *Node {
	return newNode(&batchLogic{inner: Lift(logic)}, ModeSync, "batch-node", opts)
}

// NewAsyncBatchNode is NewBatchNode for async logic. Items are still run one
// at a time.
func NewAsyncBatchNode(logic AsyncLogic, opts ...NodeOption) *Node {
	return newNode(&batchLogic{inner: logic}, ModeAsync, "async-batch-node", opts)
}

// NewParallelBatchNode runs the per-item Exec calls concurrently, at most
// limit at a time. Results keep the item order. The first failure cancels
// the remaining items and Post is not called.
func NewParallelBatchNode(logic AsyncLogic, limit int, opts ...NodeOption) (*Node, error) {
	if limit <= 0 {
		return nil, &schema.FormatError{Reason: fmt.Sprintf("parallel batch concurrency must be positive, got %d", limit)}
	}
	return newNode(&parallelLogic{batchLogic: batchLogic{inner: logic}, limit: limit}, ModeAsync, "parallel-batch-node", opts), nil
}

type batchLogic struct {
	inner AsyncLogic
}

func (b *batchLogic) Prep(params Params, shared Reader) (value.Value, error) {
	prepared, err := b.inner.Prep(params, shared)
	if err != nil {
		return value.Null(), err
	}
	if prepared.Kind() != value.KindList {
		return value.Null(), fmt.Errorf("%w, got %s", ErrNotList, prepared.Kind())
	}
	return prepared, nil
}

func (b *batchLogic) Exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	items, _ := prepared.AsList()
	results := make([]value.Value, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return value.Null(), err
		}
		r, err := b.inner.Exec(ctx, item)
		if err != nil {
			return value.Null(), fmt.Errorf("item %d: %w", i, err)
		}
		results[i] = r
	}
	return value.List(results...), nil
}

func (b *batchLogic) Post(shared State, prepared, executed value.Value) (Action, error) {
	return b.inner.Post(shared, prepared, executed)
}

type parallelLogic struct {
	batchLogic
	limit int
}

func (p *parallelLogic) Exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	items, _ := prepared.AsList()
	results := make([]value.Value, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.inner.Exec(gctx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return value.Null(), err
	}
	return value.List(results...), nil
}

// ItemsFunc yields one parameter set per inner-flow run of a BatchFlow.
type ItemsFunc func(params Params, shared Reader) ([]Params, error)

// BatchFlow runs an inner flow once per parameter set, sequentially, against
// the same shared state.
type BatchFlow struct {
	links
	name   string
	inner  *Flow
	items  ItemsFunc
	params Params
	action Action
}

// BatchFlowOption configures a BatchFlow.
type BatchFlowOption func(*BatchFlow)

func WithBatchName(name string) BatchFlowOption {
	return func(b *BatchFlow) { b.name = name }
}

func WithBatchParams(p Params) BatchFlowOption {
	return func(b *BatchFlow) { b.params = p.Clone() }
}

// WithBatchAction sets the label returned after the last inner run.
// Defaults to DefaultAction.
func WithBatchAction(a Action) BatchFlowOption {
	return func(b *BatchFlow) { b.action = a }
}

func NewBatchFlow(inner *Flow, items ItemsFunc, opts ...BatchFlowOption) *BatchFlow {
	b := &BatchFlow{inner: inner, items: items, action: DefaultAction}
	for _, opt := range opts {
		opt(b)
	}
	if b.name == "" {
		b.name = autoName("batch-flow")
	}
	return b
}

func (b *BatchFlow) Name() string { return b.name }
func (b *BatchFlow) Mode() Mode   { return b.inner.Mode() }
func (b *BatchFlow) Flow() *Flow  { return b.inner }

func (b *BatchFlow) Next(target Executable) *BatchFlow {
	return b.On(DefaultAction, target)
}

func (b *BatchFlow) On(action Action, target Executable) *BatchFlow {
	b.set(action, target)
	return b
}

// Run executes every inner run and returns the batch label.
func (b *BatchFlow) Run(ctx context.Context, shared State) (Action, error) {
	e := defaultEnv()
	return b.run(ctx, e, shared, nil)
}

func (b *BatchFlow) run(ctx context.Context, e *env, shared State, inherited Params) (Action, error) {
	params := b.params.with(inherited)
	sets, err := b.items(params, shared.ReadOnly())
	if err != nil {
		return NoAction, &StepError{Node: b.name, Phase: PhasePrep, Err: err}
	}
	for i, set := range sets {
		if err := ctx.Err(); err != nil {
			return NoAction, err
		}
		if _, err := b.inner.run(ctx, e, shared, params.with(set)); err != nil {
			return NoAction, fmt.Errorf("batch %q run %d: %w", b.name, i, err)
		}
	}
	return b.action, nil
}
