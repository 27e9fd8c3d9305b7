package indicator

import (
	"math"

	"marketfeatures/internal/model"
)

// ADXResult holds the Average Directional Index and its directional lines.
type ADXResult struct {
	ADX     model.Column
	PlusDI  model.Column
	MinusDI model.Column
}

// ADX computes the Average Directional Index.
//
// +DM and -DM start at the second bar; +DM is the up-move when it exceeds
// the down-move (and is positive), -DM symmetric. +DM, -DM and TR are
// Wilder-smoothed over length, giving +DI/-DI from index length. DX is
// Wilder-smoothed again, so ADX is defined from index 2*length-1.
func ADX(bars model.BarSequence, length int) ADXResult {
	n := len(bars)
	plusDM := model.NewColumn(n)
	minusDM := model.NewColumn(n)
	tr := model.NewColumn(n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low

		pdm, mdm := 0.0, 0.0
		if up > down && up > 0 {
			pdm = up
		}
		if down > up && down > 0 {
			mdm = down
		}
		plusDM[i] = model.Some(pdm)
		minusDM[i] = model.Some(mdm)
		tr[i] = model.Some(trueRange(bars, i))
	}

	smPlus := WilderSeries(plusDM, length)
	smMinus := WilderSeries(minusDM, length)
	smTR := WilderSeries(tr, length)

	res := ADXResult{
		ADX:     model.NewColumn(n),
		PlusDI:  model.NewColumn(n),
		MinusDI: model.NewColumn(n),
	}
	dx := model.NewColumn(n)
	for i := 0; i < n; i++ {
		p, okP := smPlus[i].Get()
		m, okM := smMinus[i].Get()
		t, okT := smTR[i].Get()
		if !okP || !okM || !okT {
			continue
		}
		pdi := model.Ratio(100*p, t)
		mdi := model.Ratio(100*m, t)
		res.PlusDI[i] = pdi
		res.MinusDI[i] = mdi
		if pdi.Valid && mdi.Valid {
			dx[i] = model.Ratio(100*math.Abs(pdi.Float-mdi.Float), pdi.Float+mdi.Float)
		}
	}
	res.ADX = WilderSeries(dx, length)
	return res
}
