package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeatures/internal/model"
	"marketfeatures/internal/testsupport"
)

func TestAssemble_DropsRowsWithUndefinedCells(t *testing.T) {
	bars := testsupport.FromCloses(10, 11, 12, 13, 14)
	a := model.Column{model.None(), model.Some(1), model.Some(2), model.Some(3), model.Some(4)}
	b := model.Column{model.None(), model.None(), model.Some(20), model.None(), model.Some(40)}

	f, err := Assemble(bars, []string{"a", "b"}, map[string]model.Column{"a": a, "b": b})
	require.NoError(t, err)

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 3, f.Trimmed())
	assert.Equal(t, 2, f.WarmupRows())
	assert.Equal(t, []string{"open", "high", "low", "close", "volume", "a", "b"}, f.Columns())
	assert.Equal(t, []model.Bar{bars[2], bars[4]}, []model.Bar(f.Bars()))

	col, ok := f.Column("b")
	require.True(t, ok)
	assert.Equal(t, []float64{20, 40}, col)

	closes, ok := f.Column(ColClose)
	require.True(t, ok)
	assert.Equal(t, []float64{12, 14}, closes)

	_, ok = f.Column("nope")
	assert.False(t, ok)
}

func TestAssemble_RowAndLast(t *testing.T) {
	bars := testsupport.FromCloses(10, 11)
	f, err := Assemble(bars, []string{"x"}, map[string]model.Column{
		"x": {model.Some(0.5), model.Some(0.75)},
	})
	require.NoError(t, err)

	ts, row := f.Row(0)
	assert.Equal(t, bars[0].TS, ts)
	assert.Equal(t, 10.0, row["close"])
	assert.Equal(t, 0.5, row["x"])
	assert.Len(t, row, 6)

	ts, row, ok := f.Last()
	require.True(t, ok)
	assert.Equal(t, bars[1].TS, ts)
	assert.Equal(t, 0.75, row["x"])
	assert.Equal(t, []time.Time{bars[0].TS, bars[1].TS}, f.Timestamps())
}

func TestAssemble_ColumnCopiesAreIndependent(t *testing.T) {
	bars := testsupport.FromCloses(1)
	f, err := Assemble(bars, []string{"x"}, map[string]model.Column{"x": {model.Some(9)}})
	require.NoError(t, err)

	col, _ := f.Column("x")
	col[0] = -1
	again, _ := f.Column("x")
	assert.Equal(t, 9.0, again[0])
}

func TestAssemble_BarsCopyIsIndependent(t *testing.T) {
	bars := testsupport.FromCloses(1, 2)
	f, err := Assemble(bars, []string{"x"}, map[string]model.Column{"x": {model.Some(1), model.Some(2)}})
	require.NoError(t, err)

	got := f.Bars()
	got[1].Close = -1
	got[1].TS = time.Time{}

	ts, row, ok := f.Last()
	require.True(t, ok)
	assert.Equal(t, bars[1].TS, ts)
	assert.Equal(t, 2.0, row[ColClose])
	assert.Equal(t, 2.0, f.Bars()[1].Close)
}

func TestAssemble_LastCloseSkipsTrimmedTail(t *testing.T) {
	bars := testsupport.FromCloses(10, 11, 12)
	f, err := Assemble(bars, []string{"x"}, map[string]model.Column{"x": {model.Some(1), model.Some(1), model.None()}})
	require.NoError(t, err)

	c, ok := f.LastClose()
	require.True(t, ok)
	assert.Equal(t, 11.0, c)

	empty, err := Assemble(bars, []string{"x"}, map[string]model.Column{"x": model.NewColumn(3)})
	require.NoError(t, err)
	_, ok = empty.LastClose()
	assert.False(t, ok)
}

func TestAssemble_EmptyFrame(t *testing.T) {
	bars := testsupport.FromCloses(1, 2)
	f, err := Assemble(bars, []string{"x"}, map[string]model.Column{"x": model.NewColumn(2)})
	require.NoError(t, err)

	assert.Equal(t, 0, f.Len())
	assert.Equal(t, 2, f.Trimmed())
	assert.Equal(t, 2, f.WarmupRows())
	_, _, ok := f.Last()
	assert.False(t, ok)
}

func TestAssemble_Errors(t *testing.T) {
	bars := testsupport.FromCloses(1, 2)
	_, err := Assemble(bars, []string{"x"}, map[string]model.Column{})
	assert.ErrorIs(t, err, model.ErrMissingColumn)

	_, err = Assemble(bars, []string{"x"}, map[string]model.Column{"x": model.NewColumn(3)})
	assert.Error(t, err)
}
