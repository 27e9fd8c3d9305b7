package indicator

import "marketfeatures/internal/model"

// EMA is an exponential moving average accumulator.
// Seeded with the SMA of the first period values, then
// EMA = price*multiplier + EMA_prev*(1-multiplier), multiplier = 2/(period+1).
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMA creates a new EMA accumulator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

// Update feeds price and returns the EMA once the seed window is complete.
func (e *EMA) Update(price float64) (float64, bool) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
			return e.current, true
		}
		return 0, false
	}

	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
	return e.current, true
}

// Value returns the last computed EMA. Returns 0 until Ready.
func (e *EMA) Value() float64 { return e.current }

// Ready returns true once the seed window is complete.
func (e *EMA) Ready() bool { return e.count >= e.period }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
	e.sum = 0
}

// EMASeries returns the EMA of src. Leading undefined inputs are skipped;
// an undefined input after that restarts the seed window.
func EMASeries(src model.Column, length int) model.Column {
	out := model.NewColumn(len(src))
	ema := NewEMA(length)
	for i, v := range src {
		if !v.Valid {
			ema.Reset()
			continue
		}
		if val, ok := ema.Update(v.Float); ok {
			out[i] = model.Some(val)
		}
	}
	return out
}
