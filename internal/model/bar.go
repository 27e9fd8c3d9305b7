package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV record of an instrument at a fixed interval.
type Bar struct {
	TS     time.Time `json:"ts"` // bar open time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JSON returns the JSON-encoded bar (ignoring errors, the struct always encodes).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// BarSequence is a chronologically ordered run of bars for one instrument.
// Callers own it; pipeline stages only read it.
type BarSequence []Bar

// Validate checks the ordering and value invariants of the sequence:
// strictly increasing timestamps, finite prices and non-negative volume.
// An empty sequence is valid; emptiness is reported by the pipeline, not here.
func (s BarSequence) Validate() error {
	for i := range s {
		b := &s[i]
		if !finite(b.Open) || !finite(b.High) || !finite(b.Low) || !finite(b.Close) {
			return fmt.Errorf("%w: non-finite price at index %d (%s)", ErrInvalidBar, i, b.TS.Format(time.RFC3339))
		}
		if !finite(b.Volume) || b.Volume < 0 {
			return fmt.Errorf("%w: bad volume %v at index %d", ErrInvalidBar, b.Volume, i)
		}
		if i > 0 && !b.TS.After(s[i-1].TS) {
			return fmt.Errorf("%w: %s does not follow %s (index %d)", ErrUnorderedBars,
				b.TS.Format(time.RFC3339), s[i-1].TS.Format(time.RFC3339), i)
		}
	}
	return nil
}

// Closes returns the close prices as a new slice.
func (s BarSequence) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// Last returns the most recent bar. ok is false for an empty sequence.
func (s BarSequence) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
