package indicator

import "marketfeatures/internal/model"

// StochResult holds the stochastic oscillator lines.
type StochResult struct {
	K model.Column
	D model.Column
}

// Stochastic computes %K = 100*(close-lowest_low(k))/(highest_high(k)-lowest_low(k))
// and %D = SMA(%K, d). A zero high-low range leaves %K undefined for that
// row, which in turn leaves the d %D rows covering it undefined.
func Stochastic(bars model.BarSequence, k, d int) StochResult {
	n := len(bars)
	kLine := model.NewColumn(n)
	for i := k - 1; i < n; i++ {
		hh := bars[i].High
		ll := bars[i].Low
		for j := i - k + 1; j < i; j++ {
			if bars[j].High > hh {
				hh = bars[j].High
			}
			if bars[j].Low < ll {
				ll = bars[j].Low
			}
		}
		if v := model.Ratio(bars[i].Close-ll, hh-ll); v.Valid {
			kLine[i] = model.Some(100 * v.Float)
		}
	}
	return StochResult{K: kLine, D: SMASeries(kLine, d)}
}
