package features

import (
	"fmt"
	"time"

	"marketfeatures/internal/model"
)

// Raw OHLCV column names.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

var rawColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// Frame is the assembled, trimmed feature table: one row per retained bar,
// every indicator and derived cell defined. Rows keep the chronological
// order and timestamps of their source bars.
type Frame struct {
	bars    model.BarSequence
	order   []string
	cols    map[string][]float64
	trimmed int
	warmup  int
}

// Assemble joins bars with the computed columns, listed in order, and drops
// every row where any of those columns is undefined. Raw OHLCV values never
// cause a drop. Columns must be aligned with bars.
func Assemble(bars model.BarSequence, order []string, cols map[string]model.Column) (*Frame, error) {
	n := len(bars)
	for _, name := range order {
		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("assemble: %w: %s", model.ErrMissingColumn, name)
		}
		if len(col) != n {
			return nil, fmt.Errorf("assemble: column %s has %d rows, want %d", name, len(col), n)
		}
	}

	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if rowDefined(cols, order, i) {
			keep = append(keep, i)
		}
	}

	f := &Frame{
		bars:    make(model.BarSequence, len(keep)),
		order:   append([]string(nil), order...),
		cols:    make(map[string][]float64, len(order)),
		trimmed: n - len(keep),
		warmup:  n,
	}
	if len(keep) > 0 {
		f.warmup = keep[0]
	}
	for j, i := range keep {
		f.bars[j] = bars[i]
	}
	for _, name := range order {
		src := cols[name]
		dst := make([]float64, len(keep))
		for j, i := range keep {
			dst[j] = src[i].Float
		}
		f.cols[name] = dst
	}
	return f, nil
}

func rowDefined(cols map[string]model.Column, order []string, i int) bool {
	for _, name := range order {
		if !cols[name][i].Valid {
			return false
		}
	}
	return true
}

// Len returns the number of retained rows.
func (f *Frame) Len() int { return len(f.bars) }

// Trimmed returns how many input rows were dropped.
func (f *Frame) Trimmed() int { return f.trimmed }

// WarmupRows returns the input index of the first retained row, or the
// input length when nothing was retained.
func (f *Frame) WarmupRows() int { return f.warmup }

// Bars returns a copy of the retained source bars.
func (f *Frame) Bars() model.BarSequence {
	return append(model.BarSequence(nil), f.bars...)
}

// Columns returns every column name: raw OHLCV first, then the computed
// columns in assembly order.
func (f *Frame) Columns() []string {
	out := make([]string, 0, len(rawColumns)+len(f.order))
	out = append(out, rawColumns...)
	return append(out, f.order...)
}

// Timestamps returns the retained row timestamps.
func (f *Frame) Timestamps() []time.Time {
	out := make([]time.Time, len(f.bars))
	for i := range f.bars {
		out[i] = f.bars[i].TS
	}
	return out
}

// Column returns a copy of the named column, raw or computed.
func (f *Frame) Column(name string) ([]float64, bool) {
	if col, ok := f.cols[name]; ok {
		return append([]float64(nil), col...), true
	}
	switch name {
	case ColOpen, ColHigh, ColLow, ColClose, ColVolume:
		out := make([]float64, len(f.bars))
		for i := range f.bars {
			out[i] = rawValue(&f.bars[i], name)
		}
		return out, true
	}
	return nil, false
}

// Row returns row i as a column-name → value map.
func (f *Frame) Row(i int) (time.Time, map[string]float64) {
	b := &f.bars[i]
	row := make(map[string]float64, len(rawColumns)+len(f.order))
	for _, name := range rawColumns {
		row[name] = rawValue(b, name)
	}
	for _, name := range f.order {
		row[name] = f.cols[name][i]
	}
	return b.TS, row
}

// Last returns the most recent row. ok is false for an empty frame.
func (f *Frame) Last() (ts time.Time, row map[string]float64, ok bool) {
	if f.Len() == 0 {
		return time.Time{}, nil, false
	}
	ts, row = f.Row(f.Len() - 1)
	return ts, row, true
}

// LastClose returns the close of the most recent retained row.
func (f *Frame) LastClose() (float64, bool) {
	if f.Len() == 0 {
		return 0, false
	}
	return f.bars[f.Len()-1].Close, true
}

func rawValue(b *model.Bar, name string) float64 {
	switch name {
	case ColOpen:
		return b.Open
	case ColHigh:
		return b.High
	case ColLow:
		return b.Low
	case ColClose:
		return b.Close
	}
	return b.Volume
}
