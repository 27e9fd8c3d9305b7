// Package indicator computes the technical indicator battery over a bar sequence.
//
// Every indicator is a pure function of the bars that returns one or more
// named columns aligned index-for-index with the input. Rows inside an
// indicator's warm-up window are undefined. Recurrences (EMA, Wilder, PSAR)
// are explicit accumulators seeded from the first full window.
package indicator

import "marketfeatures/internal/model"

// Spec describes one indicator of the battery.
type Spec struct {
	// Name identifies the indicator (e.g. "rsi", "macd").
	Name string

	// Columns lists the column names Compute returns, in display order.
	Columns []string

	// Warmup is the index of the first defined row on well-formed input.
	Warmup int

	// Compute produces the indicator columns. It must not retain or mutate bars.
	Compute func(bars model.BarSequence) map[string]model.Column
}

// Fixed parameters of the feature pipeline.
const (
	RSILength     = 14
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignal    = 9
	BBandsLength  = 20
	BBandsStdDev  = 2.0
	ATRLength     = 14
	EMAShort      = 50
	EMALong       = 200
	ADXLength     = 14
	StochK        = 14
	StochD        = 3
	CMFLength     = 20
	PSARStart     = 0.02
	PSARIncrement = 0.02
	PSARMaxAF     = 0.2
)

// Column names exposed by the battery.
const (
	ColRSI             = "rsi_14"
	ColMACD            = "macd"
	ColMACDSignal      = "macd_signal"
	ColMACDHist        = "macd_hist"
	ColBBandsLower     = "bbands_lower"
	ColBBandsMiddle    = "bbands_middle"
	ColBBandsUpper     = "bbands_upper"
	ColBBandsBandwidth = "bbands_bandwidth"
	ColBBandsPercent   = "bbands_percent"
	ColATR             = "atr_14"
	ColEMA50           = "ema_50"
	ColEMA200          = "ema_200"
	ColADX             = "adx_14"
	ColDMP             = "dmp_14"
	ColDMN             = "dmn_14"
	ColOBV             = "obv"
	ColStochK          = "stoch_k"
	ColStochD          = "stoch_d"
	ColCMF             = "cmf_20"
	ColPSAR            = "psar"
	ColPSARTrend       = "psar_trend"
	ColPSARAF          = "psar_af"
	ColPSARReversal    = "psar_reversal"
)

// Battery returns the fixed indicator set of the feature pipeline.
func Battery() []Spec {
	return []Spec{
		{
			Name:    "rsi",
			Columns: []string{ColRSI},
			Warmup:  RSILength,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				return map[string]model.Column{ColRSI: RSI(bars, RSILength)}
			},
		},
		{
			Name:    "macd",
			Columns: []string{ColMACD, ColMACDSignal, ColMACDHist},
			Warmup:  MACDSlow - 1 + MACDSignal - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				m := MACD(bars, MACDFast, MACDSlow, MACDSignal)
				return map[string]model.Column{ColMACD: m.Line, ColMACDSignal: m.Signal, ColMACDHist: m.Hist}
			},
		},
		{
			Name:    "bbands",
			Columns: []string{ColBBandsLower, ColBBandsMiddle, ColBBandsUpper, ColBBandsBandwidth, ColBBandsPercent},
			Warmup:  BBandsLength - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				b := BBands(bars, BBandsLength, BBandsStdDev)
				return map[string]model.Column{
					ColBBandsLower:     b.Lower,
					ColBBandsMiddle:    b.Middle,
					ColBBandsUpper:     b.Upper,
					ColBBandsBandwidth: b.Bandwidth,
					ColBBandsPercent:   b.Percent,
				}
			},
		},
		{
			Name:    "atr",
			Columns: []string{ColATR},
			Warmup:  ATRLength - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				return map[string]model.Column{ColATR: ATR(bars, ATRLength)}
			},
		},
		{
			Name:    "ema_50",
			Columns: []string{ColEMA50},
			Warmup:  EMAShort - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				return map[string]model.Column{ColEMA50: EMASeries(closeColumn(bars), EMAShort)}
			},
		},
		{
			Name:    "ema_200",
			Columns: []string{ColEMA200},
			Warmup:  EMALong - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				return map[string]model.Column{ColEMA200: EMASeries(closeColumn(bars), EMALong)}
			},
		},
		{
			Name:    "adx",
			Columns: []string{ColADX, ColDMP, ColDMN},
			Warmup:  2*ADXLength - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				a := ADX(bars, ADXLength)
				return map[string]model.Column{ColADX: a.ADX, ColDMP: a.PlusDI, ColDMN: a.MinusDI}
			},
		},
		{
			Name:    "obv",
			Columns: []string{ColOBV},
			Warmup:  0,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				return map[string]model.Column{ColOBV: OBV(bars)}
			},
		},
		{
			Name:    "stoch",
			Columns: []string{ColStochK, ColStochD},
			Warmup:  StochK - 1 + StochD - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				s := Stochastic(bars, StochK, StochD)
				return map[string]model.Column{ColStochK: s.K, ColStochD: s.D}
			},
		},
		{
			Name:    "cmf",
			Columns: []string{ColCMF},
			Warmup:  CMFLength - 1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				return map[string]model.Column{ColCMF: CMF(bars, CMFLength)}
			},
		},
		{
			Name:    "psar",
			Columns: []string{ColPSAR, ColPSARTrend, ColPSARAF, ColPSARReversal},
			Warmup:  1,
			Compute: func(bars model.BarSequence) map[string]model.Column {
				p := PSAR(bars, DefaultPSARParams())
				return map[string]model.Column{
					ColPSAR:         p.SAR,
					ColPSARTrend:    p.Trend,
					ColPSARAF:       p.AF,
					ColPSARReversal: p.Reversal,
				}
			},
		},
	}
}

func closeColumn(bars model.BarSequence) model.Column {
	out := model.NewColumn(len(bars))
	for i := range bars {
		out[i] = model.Some(bars[i].Close)
	}
	return out
}
