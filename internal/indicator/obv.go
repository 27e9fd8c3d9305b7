package indicator

import "marketfeatures/internal/model"

// OBV returns On-Balance Volume: a running sum that adds the bar volume on
// an up-close, subtracts it on a down-close and holds on an unchanged close.
// OBV starts at 0 on the first bar.
func OBV(bars model.BarSequence) model.Column {
	out := model.NewColumn(len(bars))
	obv := 0.0
	for i := range bars {
		if i > 0 {
			switch {
			case bars[i].Close > bars[i-1].Close:
				obv += bars[i].Volume
			case bars[i].Close < bars[i-1].Close:
				obv -= bars[i].Volume
			}
		}
		out[i] = model.Some(obv)
	}
	return out
}
