package indicator

import "marketfeatures/internal/model"

// MACDResult holds the three MACD columns.
type MACDResult struct {
	Line   model.Column // EMA(fast) - EMA(slow)
	Signal model.Column // EMA(Line, signal)
	Hist   model.Column // Line - Signal
}

// MACD computes Moving Average Convergence Divergence on the closes.
// The signal EMA is seeded from the first signal defined line values, so the
// first complete row is index slow-1 + signal-1.
func MACD(bars model.BarSequence, fast, slow, signal int) MACDResult {
	closes := closeColumn(bars)
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	n := len(bars)
	line := model.NewColumn(n)
	for i := 0; i < n; i++ {
		f, okF := fastEMA[i].Get()
		s, okS := slowEMA[i].Get()
		if okF && okS {
			line[i] = model.Some(f - s)
		}
	}

	sig := EMASeries(line, signal)
	hist := model.NewColumn(n)
	for i := 0; i < n; i++ {
		l, okL := line[i].Get()
		s, okS := sig[i].Get()
		if okL && okS {
			hist[i] = model.Some(l - s)
		}
	}
	return MACDResult{Line: line, Signal: sig, Hist: hist}
}
