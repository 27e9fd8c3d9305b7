package indicator

import (
	"math"

	"marketfeatures/internal/model"
)

// Trend is the PSAR trend direction.
type Trend int8

const (
	Downtrend Trend = -1
	Uptrend   Trend = 1
)

func (t Trend) String() string {
	if t == Uptrend {
		return "up"
	}
	return "down"
}

// PSARParams are the acceleration settings of the Parabolic SAR.
type PSARParams struct {
	Start     float64
	Increment float64
	Max       float64
}

// DefaultPSARParams returns start=0.02, increment=0.02, max=0.2.
func DefaultPSARParams() PSARParams {
	return PSARParams{Start: PSARStart, Increment: PSARIncrement, Max: PSARMaxAF}
}

// PSARState is the fold accumulator of the Parabolic SAR. It is a value:
// Step returns the next state and never mutates the receiver.
type PSARState struct {
	Trend Trend
	SAR   float64
	EP    float64 // extreme point of the current trend
	AF    float64 // acceleration factor
}

// SeedPSAR derives the initial state from the first two bars: an uptrend
// when the close rises, otherwise a downtrend. The SAR starts at the first
// bar's low (uptrend) or high (downtrend) and the extreme point at the
// opposite end of that bar.
func SeedPSAR(first, second model.Bar, p PSARParams) PSARState {
	if second.Close > first.Close {
		return PSARState{Trend: Uptrend, SAR: first.Low, EP: first.High, AF: p.Start}
	}
	return PSARState{Trend: Downtrend, SAR: first.High, EP: first.Low, AF: p.Start}
}

// Step advances the state over bar. prev1 is the bar before it; prev2 the
// one before that, nil when bar is the second bar of the sequence.
// reversed reports whether the trend flipped on this bar.
func (s PSARState) Step(p PSARParams, bar, prev1 model.Bar, prev2 *model.Bar) (next PSARState, reversed bool) {
	sar := s.SAR + s.AF*(s.EP-s.SAR)

	if s.Trend == Uptrend {
		// SAR may not rise into the prior two bars' lows.
		sar = math.Min(sar, prev1.Low)
		if prev2 != nil {
			sar = math.Min(sar, prev2.Low)
		}
		if bar.Low <= sar {
			return PSARState{Trend: Downtrend, SAR: s.EP, EP: bar.Low, AF: p.Start}, true
		}
		next = PSARState{Trend: Uptrend, SAR: sar, EP: s.EP, AF: s.AF}
		if bar.High > s.EP {
			next.EP = bar.High
			next.AF = math.Min(s.AF+p.Increment, p.Max)
		}
		return next, false
	}

	// SAR may not fall into the prior two bars' highs.
	sar = math.Max(sar, prev1.High)
	if prev2 != nil {
		sar = math.Max(sar, prev2.High)
	}
	if bar.High >= sar {
		return PSARState{Trend: Uptrend, SAR: s.EP, EP: bar.High, AF: p.Start}, true
	}
	next = PSARState{Trend: Downtrend, SAR: sar, EP: s.EP, AF: s.AF}
	if bar.Low < s.EP {
		next.EP = bar.Low
		next.AF = math.Min(s.AF+p.Increment, p.Max)
	}
	return next, false
}

// PSARResult holds the emitted Parabolic SAR columns.
type PSARResult struct {
	SAR      model.Column
	Trend    model.Column // +1 uptrend, -1 downtrend
	AF       model.Column
	Reversal model.Column // 1 on the bar where the trend flipped, else 0
}

// PSAR folds the state machine over bars. The first bar only seeds the
// state and emits nothing; every later bar emits the post-step state.
func PSAR(bars model.BarSequence, p PSARParams) PSARResult {
	n := len(bars)
	res := PSARResult{
		SAR:      model.NewColumn(n),
		Trend:    model.NewColumn(n),
		AF:       model.NewColumn(n),
		Reversal: model.NewColumn(n),
	}
	if n < 2 {
		return res
	}

	state := SeedPSAR(bars[0], bars[1], p)
	for i := 1; i < n; i++ {
		var prev2 *model.Bar
		if i >= 2 {
			prev2 = &bars[i-2]
		}
		var reversed bool
		state, reversed = state.Step(p, bars[i], bars[i-1], prev2)

		res.SAR[i] = model.Some(state.SAR)
		res.Trend[i] = model.Some(float64(state.Trend))
		res.AF[i] = model.Some(state.AF)
		if reversed {
			res.Reversal[i] = model.Some(1)
		} else {
			res.Reversal[i] = model.Some(0)
		}
	}
	return res
}
