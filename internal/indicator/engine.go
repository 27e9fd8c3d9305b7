package indicator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"marketfeatures/internal/model"
)

// Observer receives the compute duration of each indicator.
type Observer func(name string, d time.Duration)

// Result holds the merged indicator columns of one Compute call.
type Result struct {
	// Columns maps column name → column aligned with the input bars.
	Columns map[string]model.Column

	// Order lists column names in battery order.
	Order []string
}

// Engine evaluates a fixed set of indicators over a shared read-only bar
// sequence, one goroutine per indicator, and joins the outputs by column name.
type Engine struct {
	specs    []Spec
	limit    int
	observer Observer
}

// NewEngine creates an engine over specs. It panics on duplicate column
// names since the join would silently drop one of them.
func NewEngine(specs []Spec) *Engine {
	seen := make(map[string]string, len(specs)*2)
	for _, s := range specs {
		for _, c := range s.Columns {
			if owner, dup := seen[c]; dup {
				panic(fmt.Sprintf("indicator: column %q produced by both %s and %s", c, owner, s.Name))
			}
			seen[c] = s.Name
		}
	}
	return &Engine{specs: specs}
}

// SetLimit caps the number of indicators evaluated concurrently (<=0 = no cap).
func (e *Engine) SetLimit(n int) { e.limit = n }

// SetObserver installs a per-indicator timing callback. It may be called
// from several goroutines at once.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// Specs returns the configured indicators.
func (e *Engine) Specs() []Spec { return e.specs }

// Warmup returns the largest warm-up index across the configured indicators.
func (e *Engine) Warmup() int {
	w := 0
	for _, s := range e.specs {
		if s.Warmup > w {
			w = s.Warmup
		}
	}
	return w
}

// Compute runs every indicator over bars. Task completion order does not
// affect the result; each task writes only its own slot and the merge is
// keyed by column name. ctx is checked before each task starts.
func (e *Engine) Compute(ctx context.Context, bars model.BarSequence) (*Result, error) {
	slots := make([]map[string]model.Column, len(e.specs))

	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := range e.specs {
		spec := e.specs[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			cols := spec.Compute(bars)
			if e.observer != nil {
				e.observer(spec.Name, time.Since(start))
			}
			for _, name := range spec.Columns {
				col, ok := cols[name]
				if !ok {
					return fmt.Errorf("indicator %s: %w: %s", spec.Name, model.ErrMissingColumn, name)
				}
				if len(col) != len(bars) {
					return fmt.Errorf("indicator %s: column %s has %d rows, want %d", spec.Name, name, len(col), len(bars))
				}
			}
			slots[i] = cols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Columns: make(map[string]model.Column)}
	for i, spec := range e.specs {
		for _, name := range spec.Columns {
			res.Columns[name] = slots[i][name]
			res.Order = append(res.Order, name)
		}
	}
	return res, nil
}
