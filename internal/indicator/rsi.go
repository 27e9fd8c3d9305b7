package indicator

import "marketfeatures/internal/model"

// RSI returns the Relative Strength Index of the closes using Wilder's
// smoothing. Gains and losses start at the second bar, so the first defined
// row is index length.
//
// With avg_loss = 0 the RSI is 100 when avg_gain > 0 and undefined when the
// window had no movement at all.
func RSI(bars model.BarSequence, length int) model.Column {
	n := len(bars)
	gains := model.NewColumn(n)
	losses := model.NewColumn(n)
	for i := 1; i < n; i++ {
		delta := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		gains[i] = model.Some(gain)
		losses[i] = model.Some(loss)
	}

	avgGain := WilderSeries(gains, length)
	avgLoss := WilderSeries(losses, length)

	out := model.NewColumn(n)
	for i := range out {
		g, okG := avgGain[i].Get()
		l, okL := avgLoss[i].Get()
		if !okG || !okL {
			continue
		}
		out[i] = rsiValue(g, l)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) model.Value {
	if avgLoss == 0 {
		if avgGain > 0 {
			return model.Some(100)
		}
		return model.None()
	}
	rs := avgGain / avgLoss
	return model.Some(100.0 - (100.0 / (1.0 + rs)))
}
