package indicator

import "marketfeatures/internal/model"

// SMMA is Wilder's smoothed moving average.
// First value is SMA(period), then SMMA = SMMA_prev*(period-1)/period + price/period.
type SMMA struct {
	period  int
	count   int
	sum     float64
	current float64
}

// NewSMMA creates a new Wilder smoothing accumulator with the given period.
func NewSMMA(period int) *SMMA {
	return &SMMA{period: period}
}

// Update feeds price and returns the smoothed value once seeded.
func (s *SMMA) Update(price float64) (float64, bool) {
	s.count++

	if s.count <= s.period {
		s.sum += price
		if s.count == s.period {
			s.current = s.sum / float64(s.period)
			return s.current, true
		}
		return 0, false
	}

	p := float64(s.period)
	s.current = s.current*(p-1)/p + price/p
	return s.current, true
}

// Value returns the last smoothed value. Returns 0 until Ready.
func (s *SMMA) Value() float64 { return s.current }

// Ready returns true once the seed window is complete.
func (s *SMMA) Ready() bool { return s.count >= s.period }

// Reset clears the SMMA state for reuse.
func (s *SMMA) Reset() {
	s.count = 0
	s.sum = 0
	s.current = 0
}

// WilderSeries applies Wilder smoothing to src with the same gap rule as
// EMASeries.
func WilderSeries(src model.Column, length int) model.Column {
	out := model.NewColumn(len(src))
	smma := NewSMMA(length)
	for i, v := range src {
		if !v.Valid {
			smma.Reset()
			continue
		}
		if val, ok := smma.Update(v.Float); ok {
			out[i] = model.Some(val)
		}
	}
	return out
}
