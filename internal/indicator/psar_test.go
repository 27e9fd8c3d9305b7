package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeatures/internal/model"
	"marketfeatures/internal/testsupport"
)

// riseThenFall climbs one point a bar for ten bars, then drops two a bar.
func riseThenFall() model.BarSequence {
	closes := make([]float64, 20)
	for i := range closes {
		if i < 10 {
			closes[i] = 100 + float64(i)
		} else {
			closes[i] = 109 - 2*float64(i-9)
		}
	}
	bars := testsupport.FromCloses(closes...)
	for i := range bars {
		bars[i].High = closes[i] + 1
		bars[i].Low = closes[i] - 1
	}
	return bars
}

func TestSeedPSAR(t *testing.T) {
	bars := riseThenFall()
	s := SeedPSAR(bars[0], bars[1], DefaultPSARParams())
	assert.Equal(t, PSARState{Trend: Uptrend, SAR: 99, EP: 101, AF: 0.02}, s)

	s = SeedPSAR(bars[11], bars[12], DefaultPSARParams())
	assert.Equal(t, PSARState{Trend: Downtrend, SAR: 106, EP: 104, AF: 0.02}, s)
}

func TestPSAR_SingleReversal(t *testing.T) {
	bars := riseThenFall()
	p := PSAR(bars, DefaultPSARParams())

	for _, col := range []model.Column{p.SAR, p.Trend, p.AF, p.Reversal} {
		assert.False(t, col[0].Valid, "first bar only seeds the state")
	}

	reversals := 0
	for i := 1; i < len(bars); i++ {
		if p.Reversal[i].Float == 1 {
			reversals++
			assert.Equal(t, 11, i, "reversal bar")
		}
	}
	require.Equal(t, 1, reversals)

	// last uptrend bar: AF capped at 0.2, EP still 110
	assertDefined(t, "sar[10]", p.SAR[10], 105.083094, 1e-6)
	assertDefined(t, "af[10]", p.AF[10], PSARMaxAF, 1e-12)
	assertDefined(t, "trend[10]", p.Trend[10], 1, 0)

	// reversal: SAR jumps to the prior extreme point and AF restarts
	assertDefined(t, "sar[11]", p.SAR[11], 110, 1e-12)
	assertDefined(t, "af[11]", p.AF[11], PSARStart, 1e-12)
	assertDefined(t, "trend[11]", p.Trend[11], -1, 0)

	// 110 + 0.02*(104-110) = 109.88
	assertDefined(t, "sar[12]", p.SAR[12], 109.88, 1e-9)
	assertDefined(t, "af[12]", p.AF[12], 0.04, 1e-12)
}

func TestPSAR_SARStaysOutsideBar(t *testing.T) {
	bars := testsupport.Wave(250)
	p := PSAR(bars, DefaultPSARParams())
	for i := 1; i < len(bars); i++ {
		if p.Reversal[i].Float == 1 {
			continue
		}
		sar := p.SAR[i].Float
		switch Trend(p.Trend[i].Float) {
		case Uptrend:
			assert.Less(t, sar, bars[i].Low, "row %d: uptrend SAR must sit below the low", i)
		case Downtrend:
			assert.Greater(t, sar, bars[i].High, "row %d: downtrend SAR must sit above the high", i)
		}
	}
}

func TestPSAR_AFBounded(t *testing.T) {
	p := PSAR(testsupport.Wave(250), DefaultPSARParams())
	for i := 1; i < len(p.AF); i++ {
		af := p.AF[i].Float
		assert.GreaterOrEqual(t, af, PSARStart)
		assert.LessOrEqual(t, af, PSARMaxAF+1e-12)
	}
}

func TestPSARState_StepDoesNotMutate(t *testing.T) {
	bars := riseThenFall()
	s := SeedPSAR(bars[0], bars[1], DefaultPSARParams())
	before := s
	next, reversed := s.Step(DefaultPSARParams(), bars[1], bars[0], nil)
	assert.False(t, reversed)
	assert.Equal(t, before, s)
	assert.Equal(t, 102.0, next.EP)
	assert.InDelta(t, 0.04, next.AF, 1e-12)
}

func TestPSAR_ShortInput(t *testing.T) {
	p := PSAR(testsupport.Wave(1), DefaultPSARParams())
	require.Len(t, p.SAR, 1)
	assert.False(t, p.SAR[0].Valid)
}

func TestTrendString(t *testing.T) {
	assert.Equal(t, "up", Uptrend.String())
	assert.Equal(t, "down", Downtrend.String())
}
