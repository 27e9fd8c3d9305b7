// Package features turns a bar sequence into the trimmed feature frame:
// indicator battery, derived ratio/return columns and warm-up trimming.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketfeatures/internal/indicator"
	"marketfeatures/internal/logger"
	"marketfeatures/internal/metrics"
	"marketfeatures/internal/model"
)

// PipelineConfig wires the optional collaborators of a Pipeline.
type PipelineConfig struct {
	Logger         *slog.Logger     // nil = slog.Default()
	Metrics        *metrics.Metrics // nil = not recorded
	MaxParallelism int              // concurrent indicators, <=0 = one goroutine each
}

// Pipeline runs Bar Sequence → indicators → derived features → trimmed Frame.
// It holds no per-run state and may be reused concurrently.
type Pipeline struct {
	engine *indicator.Engine
	log    *slog.Logger
	prom   *metrics.Metrics
}

// NewPipeline creates a pipeline over the standard indicator battery.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		engine: indicator.NewEngine(indicator.Battery()),
		log:    cfg.Logger,
		prom:   cfg.Metrics,
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.engine.SetLimit(cfg.MaxParallelism)
	if p.prom != nil {
		p.engine.SetObserver(p.prom.ObserveIndicator)
	}
	return p
}

// Warmup returns the index of the first row that can survive trimming on
// well-behaved input.
func (p *Pipeline) Warmup() int {
	w := p.engine.Warmup()
	if lag := MaxReturnLag(); lag > w {
		w = lag
	}
	return w
}

// Run computes the feature frame for bars.
//
// An empty sequence and a sequence shorter than the warm-up are reported in
// the log and yield an empty frame, not an error. Errors are returned only
// for invalid input (see model.BarSequence.Validate) and cancellation.
func (p *Pipeline) Run(ctx context.Context, bars model.BarSequence) (*Frame, error) {
	start := time.Now()
	attrs := logger.LogWithRun(ctx)

	frame, err := p.run(ctx, bars, attrs)
	p.observe(frame, err, len(bars), time.Since(start))
	return frame, err
}

func (p *Pipeline) run(ctx context.Context, bars model.BarSequence, attrs []any) (*Frame, error) {
	if len(bars) == 0 {
		p.log.Warn("no bars supplied, returning empty feature frame", attrs...)
		return p.emptyFrame(), nil
	}
	if err := bars.Validate(); err != nil {
		return nil, fmt.Errorf("feature pipeline: %w", err)
	}

	p.log.Debug("feature pipeline start", append(attrs,
		slog.Int("bars", len(bars)),
		slog.Time("first", bars[0].TS),
		slog.Time("last", bars[len(bars)-1].TS),
	)...)

	res, err := p.engine.Compute(ctx, bars)
	if err != nil {
		return nil, fmt.Errorf("feature pipeline: %w", err)
	}

	derived, err := BuildDerived(bars, res.Columns)
	if err != nil {
		return nil, fmt.Errorf("feature pipeline: %w", err)
	}

	order := make([]string, 0, len(res.Order)+len(derived))
	all := make(map[string]model.Column, len(res.Columns)+len(derived))
	for _, name := range res.Order {
		order = append(order, name)
		all[name] = res.Columns[name]
	}
	for _, name := range DerivedColumns() {
		order = append(order, name)
		all[name] = derived[name]
	}

	frame, err := Assemble(bars, order, all)
	if err != nil {
		return nil, fmt.Errorf("feature pipeline: %w", err)
	}

	if frame.Len() == 0 {
		p.log.Warn("insufficient history, every row trimmed", append(attrs,
			slog.Int("bars", len(bars)),
			slog.Int("warmup", p.Warmup()),
		)...)
		return frame, nil
	}

	p.log.Info("feature frame assembled", append(attrs,
		slog.Int("rows_in", len(bars)),
		slog.Int("rows_out", frame.Len()),
		slog.Int("trimmed", frame.Trimmed()),
		slog.Int("columns", len(frame.Columns())),
		slog.Time("first_retained", frame.Bars()[0].TS),
	)...)
	return frame, nil
}

func (p *Pipeline) observe(frame *Frame, err error, rowsIn int, d time.Duration) {
	if p.prom == nil {
		return
	}
	p.prom.PipelineDur.Observe(d.Seconds())
	p.prom.RowsIn.Add(float64(rowsIn))

	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case frame.Len() == 0:
		result = "empty"
	}
	p.prom.PipelineRuns.WithLabelValues(result).Inc()

	if frame != nil {
		p.prom.RowsOut.Add(float64(frame.Len()))
		p.prom.RowsTrimmed.Add(float64(frame.Trimmed()))
	}
}

// emptyFrame carries the full column layout with zero rows.
func (p *Pipeline) emptyFrame() *Frame {
	var order []string
	for _, s := range p.engine.Specs() {
		order = append(order, s.Columns...)
	}
	order = append(order, DerivedColumns()...)
	cols := make(map[string]model.Column, len(order))
	for _, name := range order {
		cols[name] = model.Column{}
	}
	f, _ := Assemble(nil, order, cols)
	return f
}
