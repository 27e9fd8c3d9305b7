package features

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeatures/internal/indicator"
	"marketfeatures/internal/logger"
	"marketfeatures/internal/metrics"
	"marketfeatures/internal/model"
	"marketfeatures/internal/testsupport"
)

func quietPipeline() *Pipeline {
	return NewPipeline(PipelineConfig{Logger: logger.New(&bytes.Buffer{}, "test", slog.LevelError)})
}

func TestPipeline_TrimsToLongestWarmup(t *testing.T) {
	bars := testsupport.Wave(260)
	p := quietPipeline()

	f, err := p.Run(context.Background(), bars)
	require.NoError(t, err)

	// Warm-ups overlap rather than stack: EMA-200 dominates every other
	// indicator lag and the 21-bar return, so the first retained row is 199.
	warmup := indicator.EMALong - 1
	assert.Equal(t, warmup, p.Warmup())
	assert.Equal(t, len(bars)-warmup, f.Len())
	assert.Equal(t, warmup, f.Trimmed())
	assert.Equal(t, warmup, f.WarmupRows())
	assert.Equal(t, bars[warmup:], f.Bars())
	assert.Len(t, f.Columns(), 5+23+8)
}

func TestPipeline_RetainedCellsMatchColumns(t *testing.T) {
	bars := testsupport.Wave(240)
	f, err := quietPipeline().Run(context.Background(), bars)
	require.NoError(t, err)
	require.Equal(t, 41, f.Len())

	ema200, ok := f.Column(indicator.ColEMA200)
	require.True(t, ok)
	want := indicator.EMASeries(closes(bars), indicator.EMALong)
	for j := range ema200 {
		assert.InDelta(t, want[f.WarmupRows()+j].Float, ema200[j], 1e-12)
	}

	ratio, _ := f.Column(ColPriceToEMA200)
	closeCol, _ := f.Column(ColClose)
	for j := range ratio {
		assert.InDelta(t, closeCol[j]/ema200[j], ratio[j], 1e-12)
	}
}

func closes(bars model.BarSequence) model.Column {
	col := model.NewColumn(len(bars))
	for i, c := range bars.Closes() {
		col[i] = model.Some(c)
	}
	return col
}

func TestPipeline_EmptyInput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPipeline(PipelineConfig{Logger: logger.New(&buf, "test", slog.LevelInfo)})

	f, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.Len(t, f.Columns(), 5+23+8)
	assert.Contains(t, buf.String(), "no bars supplied")
}

func TestPipeline_InsufficientHistory(t *testing.T) {
	var buf bytes.Buffer
	p := NewPipeline(PipelineConfig{Logger: logger.New(&buf, "test", slog.LevelInfo)})

	ctx := logger.WithRunID(context.Background(), "run-short")
	f, err := p.Run(ctx, testsupport.Wave(150))
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, 150, f.Trimmed())
	assert.Contains(t, buf.String(), "insufficient history")
	assert.Contains(t, buf.String(), "run-short")
}

func TestPipeline_RejectsInvalidBars(t *testing.T) {
	bars := testsupport.Wave(10)
	bars[5].TS = bars[4].TS
	_, err := quietPipeline().Run(context.Background(), bars)
	assert.ErrorIs(t, err, model.ErrUnorderedBars)
}

func TestPipeline_DoesNotMutateInput(t *testing.T) {
	bars := testsupport.Wave(220)
	before := append(model.BarSequence(nil), bars...)
	_, err := quietPipeline().Run(context.Background(), bars)
	require.NoError(t, err)
	assert.Equal(t, before, bars)
}

func TestPipeline_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	p := NewPipeline(PipelineConfig{
		Logger:         logger.New(&bytes.Buffer{}, "test", slog.LevelError),
		Metrics:        m,
		MaxParallelism: 2,
	})

	_, err := p.Run(context.Background(), testsupport.Wave(260))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), testsupport.Wave(20))
	require.NoError(t, err)

	assert.Equal(t, 280.0, testutil.ToFloat64(m.RowsIn))
	assert.Equal(t, 61.0, testutil.ToFloat64(m.RowsOut))
	assert.Equal(t, 219.0, testutil.ToFloat64(m.RowsTrimmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("empty")))
	assert.Equal(t, len(indicator.Battery()), testutil.CollectAndCount(m.IndicatorComputeDur))
}
