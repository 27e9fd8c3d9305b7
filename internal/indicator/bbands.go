package indicator

import "marketfeatures/internal/model"

// BBandsResult holds the Bollinger Band columns.
type BBandsResult struct {
	Lower     model.Column
	Middle    model.Column
	Upper     model.Column
	Bandwidth model.Column // 100 * (upper-lower) / middle
	Percent   model.Column // (close-lower) / (upper-lower)
}

// BBands computes Bollinger Bands: middle = SMA(close, length), bands at
// middle ± k * population std-dev of the same window.
func BBands(bars model.BarSequence, length int, k float64) BBandsResult {
	n := len(bars)
	res := BBandsResult{
		Lower:     model.NewColumn(n),
		Middle:    model.NewColumn(n),
		Upper:     model.NewColumn(n),
		Bandwidth: model.NewColumn(n),
		Percent:   model.NewColumn(n),
	}

	window := NewSMA(length)
	for i := range bars {
		mid, ok := window.Update(bars[i].Close)
		if !ok {
			continue
		}
		dev := window.StdDev()
		upper := mid + k*dev
		lower := mid - k*dev

		res.Middle[i] = model.Some(mid)
		res.Upper[i] = model.Some(upper)
		res.Lower[i] = model.Some(lower)
		if bw := model.Ratio(upper-lower, mid); bw.Valid {
			res.Bandwidth[i] = model.Some(100 * bw.Float)
		}
		res.Percent[i] = model.Ratio(bars[i].Close-lower, upper-lower)
	}
	return res
}
