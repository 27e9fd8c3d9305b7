package indicator

import (
	"math"

	"marketfeatures/internal/model"
)

// TrueRange returns max(high-low, |high-prev_close|, |low-prev_close|) for
// every bar. The first bar has no previous close and uses high-low.
func TrueRange(bars model.BarSequence) model.Column {
	out := model.NewColumn(len(bars))
	for i := range bars {
		out[i] = model.Some(trueRange(bars, i))
	}
	return out
}

func trueRange(bars model.BarSequence, i int) float64 {
	hl := bars[i].High - bars[i].Low
	if i == 0 {
		return hl
	}
	prevClose := bars[i-1].Close
	hc := math.Abs(bars[i].High - prevClose)
	lc := math.Abs(bars[i].Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR returns the Average True Range: Wilder smoothing of the true range,
// seeded with the mean of the first length true ranges.
func ATR(bars model.BarSequence, length int) model.Column {
	return WilderSeries(TrueRange(bars), length)
}
