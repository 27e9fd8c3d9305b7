package indicator

import (
	"math"

	"marketfeatures/internal/model"
)

// SMA is a rolling simple moving average over a fixed window.
// Uses a preallocated circular buffer; Update is O(1).
type SMA struct {
	period int
	buf    []float64 // circular buffer of the last period values
	idx    int       // next write position
	count  int       // values received since the last Reset
	sum    float64
}

// NewSMA creates a rolling window of the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

// Update feeds v and returns the window mean once the window is full.
func (s *SMA) Update(v float64) (float64, bool) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}
	s.buf[s.idx] = v
	s.sum += v
	s.idx = (s.idx + 1) % s.period
	s.count++

	if !s.Ready() {
		return 0, false
	}
	return s.sum / float64(s.period), true
}

// Ready returns true once period values have been received.
func (s *SMA) Ready() bool { return s.count >= s.period }

// Sum returns the sum of the current window.
func (s *SMA) Sum() float64 { return s.sum }

// StdDev returns the population standard deviation of the current window.
// The deviation is taken around a freshly computed mean so the running sum
// never leaks rounding error into it.
func (s *SMA) StdDev() float64 {
	n := s.count
	if n > s.period {
		n = s.period
	}
	if n == 0 {
		return 0
	}
	var mean float64
	for i := 0; i < n; i++ {
		mean += s.buf[i]
	}
	mean /= float64(n)
	var sq float64
	for i := 0; i < n; i++ {
		d := s.buf[i] - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

// Reset clears the window for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// SMASeries returns the rolling mean of src. An undefined input restarts
// the window, so every defined output covers length consecutive inputs.
func SMASeries(src model.Column, length int) model.Column {
	out := model.NewColumn(len(src))
	sma := NewSMA(length)
	for i, v := range src {
		if !v.Valid {
			sma.Reset()
			continue
		}
		if mean, ok := sma.Update(v.Float); ok {
			out[i] = model.Some(mean)
		}
	}
	return out
}
