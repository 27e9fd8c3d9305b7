package indicator

import "marketfeatures/internal/model"

// CMF returns Chaikin Money Flow over length bars:
// sum(MFM*volume) / sum(volume), MFM = ((close-low)-(high-close))/(high-low).
// A bar with high == low contributes zero money flow. A window with zero
// total volume is undefined.
func CMF(bars model.BarSequence, length int) model.Column {
	out := model.NewColumn(len(bars))
	flow := NewSMA(length)
	vol := NewSMA(length)
	for i := range bars {
		b := &bars[i]
		mfm := 0.0
		if rng := b.High - b.Low; rng != 0 {
			mfm = ((b.Close - b.Low) - (b.High - b.Close)) / rng
		}
		flow.Update(mfm * b.Volume)
		if _, ok := vol.Update(b.Volume); !ok {
			continue
		}
		out[i] = model.Ratio(flow.Sum(), vol.Sum())
	}
	return out
}
