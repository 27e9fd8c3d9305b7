package features

import (
	"fmt"

	"marketfeatures/internal/indicator"
	"marketfeatures/internal/model"
)

// Derived column names.
const (
	ColPriceToEMA50  = "price_to_ema50"
	ColPriceToEMA200 = "price_to_ema200"
	ColEMA50ToEMA200 = "ema50_to_ema200"
)

// ReturnLags are the look-back distances, in bars, of the lagged returns.
var ReturnLags = []int{1, 3, 5, 10, 21}

// ReturnColumn names the lagged return column for lag bars, e.g. return_5d.
func ReturnColumn(lag int) string {
	return fmt.Sprintf("return_%dd", lag)
}

// DerivedColumns lists the derived column names in output order.
func DerivedColumns() []string {
	out := []string{ColPriceToEMA50, ColPriceToEMA200, ColEMA50ToEMA200}
	for _, lag := range ReturnLags {
		out = append(out, ReturnColumn(lag))
	}
	return out
}

// MaxReturnLag returns the longest lagged-return distance.
func MaxReturnLag() int {
	longest := 0
	for _, lag := range ReturnLags {
		if lag > longest {
			longest = lag
		}
	}
	return longest
}

// BuildDerived computes the ratio and lagged-return columns from the bars and
// the ema_50/ema_200 indicator columns. A row is undefined wherever an input
// EMA is undefined or a denominator is zero; return_Nd is undefined for the
// first N rows.
func BuildDerived(bars model.BarSequence, cols map[string]model.Column) (map[string]model.Column, error) {
	n := len(bars)
	ema50, err := requireColumn(cols, indicator.ColEMA50, n)
	if err != nil {
		return nil, err
	}
	ema200, err := requireColumn(cols, indicator.ColEMA200, n)
	if err != nil {
		return nil, err
	}

	priceTo50 := model.NewColumn(n)
	priceTo200 := model.NewColumn(n)
	fastToSlow := model.NewColumn(n)
	for i := 0; i < n; i++ {
		c := bars[i].Close
		if e, ok := ema50[i].Get(); ok {
			priceTo50[i] = model.Ratio(c, e)
		}
		if e, ok := ema200[i].Get(); ok {
			priceTo200[i] = model.Ratio(c, e)
		}
		if ema50[i].Valid && ema200[i].Valid {
			fastToSlow[i] = model.Ratio(ema50[i].Float, ema200[i].Float)
		}
	}

	out := map[string]model.Column{
		ColPriceToEMA50:  priceTo50,
		ColPriceToEMA200: priceTo200,
		ColEMA50ToEMA200: fastToSlow,
	}
	for _, lag := range ReturnLags {
		out[ReturnColumn(lag)] = laggedReturn(bars, lag)
	}
	return out, nil
}

func laggedReturn(bars model.BarSequence, lag int) model.Column {
	out := model.NewColumn(len(bars))
	for i := lag; i < len(bars); i++ {
		if r := model.Ratio(bars[i].Close, bars[i-lag].Close); r.Valid {
			out[i] = model.Some(r.Float - 1)
		}
	}
	return out
}

func requireColumn(cols map[string]model.Column, name string, n int) (model.Column, error) {
	col, ok := cols[name]
	if !ok {
		return nil, fmt.Errorf("derived features: %w: %s", model.ErrMissingColumn, name)
	}
	if len(col) != n {
		return nil, fmt.Errorf("derived features: column %s has %d rows, want %d", name, len(col), n)
	}
	return col, nil
}
