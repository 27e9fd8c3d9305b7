package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeatures/internal/indicator"
	"marketfeatures/internal/model"
	"marketfeatures/internal/testsupport"
)

func constantColumn(n int, v float64) model.Column {
	col := model.NewColumn(n)
	for i := range col {
		col[i] = model.Some(v)
	}
	return col
}

func TestBuildDerived_RequiresEMAs(t *testing.T) {
	bars := testsupport.FromCloses(1, 2, 3)
	_, err := BuildDerived(bars, map[string]model.Column{
		indicator.ColEMA50: constantColumn(3, 1),
	})
	assert.ErrorIs(t, err, model.ErrMissingColumn)

	_, err = BuildDerived(bars, map[string]model.Column{
		indicator.ColEMA200: constantColumn(3, 1),
	})
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}

func TestBuildDerived_Ratios(t *testing.T) {
	bars := testsupport.FromCloses(100, 110, 121)
	ema50 := model.Column{model.None(), model.Some(100), model.Some(110)}
	ema200 := model.Column{model.None(), model.None(), model.Some(0)}

	out, err := BuildDerived(bars, map[string]model.Column{
		indicator.ColEMA50:  ema50,
		indicator.ColEMA200: ema200,
	})
	require.NoError(t, err)

	assert.False(t, out[ColPriceToEMA50][0].Valid)
	assert.InDelta(t, 1.1, out[ColPriceToEMA50][1].Float, 1e-12)
	assert.InDelta(t, 1.1, out[ColPriceToEMA50][2].Float, 1e-12)

	// a zero EMA leaves the ratio undefined rather than infinite
	assert.False(t, out[ColPriceToEMA200][2].Valid)
	assert.False(t, out[ColEMA50ToEMA200][2].Valid)
}

func TestBuildDerived_LaggedReturns(t *testing.T) {
	bars := testsupport.Rising(40, 100, 2)
	n := len(bars)
	out, err := BuildDerived(bars, map[string]model.Column{
		indicator.ColEMA50:  constantColumn(n, 100),
		indicator.ColEMA200: constantColumn(n, 50),
	})
	require.NoError(t, err)

	for _, lag := range ReturnLags {
		col := out[ReturnColumn(lag)]
		require.Len(t, col, n)
		assert.Equal(t, lag, col.FirstValid(), "return_%dd", lag)
		for i := lag; i < n; i++ {
			want := bars[i].Close/bars[i-lag].Close - 1
			assert.InDelta(t, want, col[i].Float, 1e-12)
		}
	}
	assert.InDelta(t, 2.0, out[ColEMA50ToEMA200][0].Float, 1e-12)
}

func TestDerivedColumns(t *testing.T) {
	assert.Equal(t, []string{
		"price_to_ema50", "price_to_ema200", "ema50_to_ema200",
		"return_1d", "return_3d", "return_5d", "return_10d", "return_21d",
	}, DerivedColumns())
	assert.Equal(t, 21, MaxReturnLag())
}
