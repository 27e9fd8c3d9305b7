package model_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeatures/internal/model"
	"marketfeatures/internal/testsupport"
)

func TestValue_Ratio(t *testing.T) {
	assert.Equal(t, model.Some(2.5), model.Ratio(5, 2))
	assert.False(t, model.Ratio(5, 0).Valid)
	assert.False(t, model.Ratio(0, 0).Valid)
}

func TestValue_OrAndString(t *testing.T) {
	assert.Equal(t, 3.0, model.Some(3).Or(-1))
	assert.Equal(t, -1.0, model.None().Or(-1))
	assert.Equal(t, "undefined", model.None().String())
	assert.Equal(t, "0.25", model.Some(0.25).String())
}

func TestValue_JSONNull(t *testing.T) {
	type row struct {
		A model.Value `json:"a"`
		B model.Value `json:"b"`
	}
	out, err := json.Marshal(row{A: model.Some(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(out))

	var back row
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":-0.5}`), &back))
	assert.False(t, back.A.Valid)
	assert.Equal(t, model.Some(-0.5), back.B)
}

func TestColumn_FirstValidAndFloats(t *testing.T) {
	col := model.NewColumn(4)
	assert.Equal(t, -1, col.FirstValid())
	col[2] = model.Some(7)
	assert.Equal(t, 2, col.FirstValid())
	assert.Equal(t, []float64{0, 0, 7, 0}, col.Floats(0))
}

func TestBarSequence_Validate(t *testing.T) {
	assert.NoError(t, model.BarSequence(nil).Validate())
	assert.NoError(t, testsupport.Wave(30).Validate())

	dup := testsupport.Wave(5)
	dup[3].TS = dup[2].TS
	assert.ErrorIs(t, dup.Validate(), model.ErrUnorderedBars)

	back := testsupport.Wave(5)
	back[4].TS = back[0].TS.Add(-time.Hour)
	assert.ErrorIs(t, back.Validate(), model.ErrUnorderedBars)

	nan := testsupport.Wave(5)
	nan[1].Close = math.NaN()
	assert.ErrorIs(t, nan.Validate(), model.ErrInvalidBar)

	neg := testsupport.Wave(5)
	neg[2].Volume = -1
	assert.ErrorIs(t, neg.Validate(), model.ErrInvalidBar)
}

func TestBarSequence_Last(t *testing.T) {
	_, ok := model.BarSequence(nil).Last()
	assert.False(t, ok)

	bars := testsupport.FromCloses(1, 2, 3)
	last, ok := bars.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last.Close)
	assert.Equal(t, []float64{1, 2, 3}, bars.Closes())
}

func TestParseOptionType(t *testing.T) {
	for in, want := range map[string]model.OptionType{
		"call": model.Call, "C": model.Call, " ce ": model.Call,
		"PUT": model.Put, "p": model.Put, "PE": model.Put,
	} {
		got, err := model.ParseOptionType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := model.ParseOptionType("straddle")
	assert.Error(t, err)
}

func TestOptionContract_Notional(t *testing.T) {
	c := model.OptionContract{Strike: 100, OpenInterest: 1000}
	assert.Equal(t, 10_000_000.0, c.Notional())
}

func TestAnalysisResult_JSONUndefinedIsNull(t *testing.T) {
	r := model.AnalysisResult{Underlying: "SPY", NoData: true}
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.JSON(), &m))
	assert.Equal(t, true, m["no_data"])
	assert.Nil(t, m["atm_iv"])
	assert.Contains(t, m, "net_delta")
}

func TestAnalysisResult_Err(t *testing.T) {
	empty := model.AnalysisResult{NoData: true}
	assert.ErrorIs(t, empty.Err(), model.ErrNoData)

	computed := model.AnalysisResult{PutCallVolumeRatio: model.Some(0.25)}
	assert.NoError(t, computed.Err())
}
