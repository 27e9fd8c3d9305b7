package indicator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeatures/internal/model"
	"marketfeatures/internal/testsupport"
)

func TestEngine_ColumnsAlignedWithBars(t *testing.T) {
	bars := testsupport.Wave(260)
	res, err := NewEngine(Battery()).Compute(context.Background(), bars)
	require.NoError(t, err)

	var want []string
	for _, s := range Battery() {
		want = append(want, s.Columns...)
	}
	assert.Equal(t, want, res.Order)
	require.Len(t, res.Columns, len(want))
	for name, col := range res.Columns {
		assert.Len(t, col, len(bars), "column %s", name)
	}
}

func TestEngine_WarmupMatchesFirstDefinedRow(t *testing.T) {
	bars := testsupport.Wave(260)
	res, err := NewEngine(Battery()).Compute(context.Background(), bars)
	require.NoError(t, err)

	for _, spec := range Battery() {
		latest := 0
		for _, name := range spec.Columns {
			first := res.Columns[name].FirstValid()
			require.NotEqual(t, -1, first, "column %s never defined", name)
			if first > latest {
				latest = first
			}
		}
		assert.Equal(t, spec.Warmup, latest, "indicator %s", spec.Name)
	}
	assert.Equal(t, EMALong-1, NewEngine(Battery()).Warmup())
}

func TestEngine_DefinedAfterWarmup(t *testing.T) {
	bars := testsupport.Wave(260)
	res, err := NewEngine(Battery()).Compute(context.Background(), bars)
	require.NoError(t, err)

	for _, spec := range Battery() {
		for _, name := range spec.Columns {
			col := res.Columns[name]
			for i := spec.Warmup; i < len(bars); i++ {
				if !col[i].Valid {
					t.Errorf("%s: row %d undefined after warm-up %d", name, i, spec.Warmup)
					break
				}
			}
		}
	}
}

func TestEngine_SequentialAndParallelAgree(t *testing.T) {
	bars := testsupport.Wave(300)

	serial := NewEngine(Battery())
	serial.SetLimit(1)
	a, err := serial.Compute(context.Background(), bars)
	require.NoError(t, err)

	b, err := NewEngine(Battery()).Compute(context.Background(), bars)
	require.NoError(t, err)

	assert.Equal(t, a.Order, b.Order)
	assert.Equal(t, a.Columns, b.Columns)
}

func TestEngine_EmptyInput(t *testing.T) {
	res, err := NewEngine(Battery()).Compute(context.Background(), nil)
	require.NoError(t, err)
	for name, col := range res.Columns {
		assert.Empty(t, col, "column %s", name)
	}
}

func TestEngine_ShortInputLeavesColumnsUndefined(t *testing.T) {
	bars := testsupport.Wave(10)
	res, err := NewEngine(Battery()).Compute(context.Background(), bars)
	require.NoError(t, err)
	assert.Equal(t, -1, res.Columns[ColEMA200].FirstValid())
	assert.Equal(t, -1, res.Columns[ColRSI].FirstValid())
	assert.Equal(t, 0, res.Columns[ColOBV].FirstValid())
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(Battery()).Compute(ctx, testsupport.Wave(50))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_MissingColumnIsError(t *testing.T) {
	broken := Spec{
		Name:    "broken",
		Columns: []string{"x"},
		Compute: func(bars model.BarSequence) map[string]model.Column {
			return map[string]model.Column{"y": model.NewColumn(len(bars))}
		},
	}
	_, err := NewEngine([]Spec{broken}).Compute(context.Background(), testsupport.Wave(5))
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}

func TestEngine_MisalignedColumnIsError(t *testing.T) {
	short := Spec{
		Name:    "short",
		Columns: []string{"x"},
		Compute: func(bars model.BarSequence) map[string]model.Column {
			return map[string]model.Column{"x": model.NewColumn(len(bars) - 1)}
		},
	}
	_, err := NewEngine([]Spec{short}).Compute(context.Background(), testsupport.Wave(5))
	assert.Error(t, err)
}

func TestNewEngine_DuplicateColumnPanics(t *testing.T) {
	specs := append(Battery(), Spec{Name: "again", Columns: []string{ColRSI}})
	assert.Panics(t, func() { NewEngine(specs) })
}

func TestEngine_ObserverCalledPerIndicator(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	e := NewEngine(Battery())
	e.SetObserver(func(name string, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		seen[name]++
		assert.GreaterOrEqual(t, d, time.Duration(0))
	})
	_, err := e.Compute(context.Background(), testsupport.Wave(60))
	require.NoError(t, err)

	require.Len(t, seen, len(Battery()))
	for _, s := range Battery() {
		assert.Equal(t, 1, seen[s.Name], "indicator %s", s.Name)
	}
}
