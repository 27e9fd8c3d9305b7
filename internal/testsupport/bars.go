// Package testsupport builds deterministic bar sequences for tests.
package testsupport

import (
	"math"
	"time"

	"marketfeatures/internal/model"
)

// Epoch is the timestamp of the first generated bar.
var Epoch = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

// Day returns the timestamp of the i-th daily bar.
func Day(i int) time.Time { return Epoch.AddDate(0, 0, i) }

// Wave returns n daily bars oscillating around a slow drift. Every bar has a
// non-zero range, both gains and losses occur in any 14-bar window and
// volume is always positive, so every indicator is defined after warm-up.
func Wave(n int) model.BarSequence {
	bars := make(model.BarSequence, n)
	prev := 100.0
	for i := 0; i < n; i++ {
		x := float64(i)
		c := 100 + 10*math.Sin(x/7) + 0.05*x + 3*math.Sin(x*1.3)
		bars[i] = model.Bar{
			TS:     Day(i),
			Open:   prev,
			High:   math.Max(prev, c) + 1 + 0.5*math.Abs(math.Sin(x)),
			Low:    math.Min(prev, c) - 1 - 0.5*math.Abs(math.Cos(x)),
			Close:  c,
			Volume: 1000 + 100*float64(i%7),
		}
		prev = c
	}
	return bars
}

// Constant returns n bars with close c and a fixed ±1 range.
func Constant(n int, c float64) model.BarSequence {
	bars := make(model.BarSequence, n)
	for i := range bars {
		bars[i] = model.Bar{TS: Day(i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

// Flat returns n bars with high == low == close == c.
func Flat(n int, c float64) model.BarSequence {
	bars := make(model.BarSequence, n)
	for i := range bars {
		bars[i] = model.Bar{TS: Day(i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

// Rising returns n bars whose close rises by step every bar, with the
// range [close-1, close+1].
func Rising(n int, start, step float64) model.BarSequence {
	bars := make(model.BarSequence, n)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = model.Bar{TS: Day(i), Open: c - step/2, High: c + 1, Low: c - 1, Close: c, Volume: 500 + float64(i)}
	}
	return bars
}

// FromCloses builds bars from closes with a ±0.5 range and unit volume.
func FromCloses(closes ...float64) model.BarSequence {
	bars := make(model.BarSequence, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{TS: Day(i), Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1}
	}
	return bars
}
