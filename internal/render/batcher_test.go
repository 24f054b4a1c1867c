package render

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajmal017/piker/internal/geom"
	"github.com/ajmal017/piker/pkg/models"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testTable(t *testing.T, bars ...models.Bar) *geom.Table {
	t.Helper()
	table, err := geom.NewTable(100, 0.43)
	require.NoError(t, err)
	_, err = table.Append(bars)
	require.NoError(t, err)
	return table
}

func TestBatcherEmptyTable(t *testing.T) {
	table, err := geom.NewTable(10, 0.43)
	require.NoError(t, err)

	b := NewBatcher(table, testLogger())
	history, live, bounds := b.Render()

	assert.Empty(t, history.Lines)
	assert.Empty(t, live.Lines)
	assert.False(t, bounds.Valid)
}

func TestBatcherSingleBar(t *testing.T) {
	table := testTable(t, models.Bar{Index: 0, Open: 10, High: 12, Low: 9, Close: 11})

	b := NewBatcher(table, testLogger())
	history, live, bounds := b.Render()

	// the only bar is the forming bar; history stays empty
	assert.Equal(t, 0, history.End)
	assert.Empty(t, history.Lines)

	assert.Equal(t, 0, live.Start)
	assert.Equal(t, 1, live.End)
	assert.Len(t, live.Lines, 3)

	require.True(t, bounds.Valid)
	assert.Equal(t, -0.43, bounds.X0)
	assert.Equal(t, 0.43, bounds.X1)
	assert.Equal(t, 9.0, bounds.Y0)
	assert.Equal(t, 12.0, bounds.Y1)
}

func TestBatcherHistoryGraduation(t *testing.T) {
	table := testTable(t,
		models.Bar{Index: 0, Open: 10, High: 12, Low: 9, Close: 11},
		models.Bar{Index: 1, Open: 11, High: 11, Low: 11, Close: 11},
		models.Bar{Index: 2, Open: 11, High: 14, Low: 10, Close: 13},
	)

	b := NewBatcher(table, testLogger())
	history, live, bounds := b.Render()

	// bars 0 and 1 graduated; bar 1 has no body so it contributes two
	// lines against bar 0's three
	assert.Equal(t, 0, history.Start)
	assert.Equal(t, 2, history.End)
	assert.Len(t, history.Lines, 5)

	assert.Equal(t, 2, live.Start)
	assert.Equal(t, 3, live.End)
	assert.Len(t, live.Lines, 3)

	require.True(t, bounds.Valid)
	assert.Equal(t, 9.0, bounds.Y0)
	assert.Equal(t, 14.0, bounds.Y1)
	assert.Equal(t, -0.43, bounds.X0)
	assert.Equal(t, 2.43, bounds.X1)
}

func TestBatcherHistoryStableAcrossLiveUpdates(t *testing.T) {
	table := testTable(t,
		models.Bar{Index: 0, Open: 10, High: 12, Low: 9, Close: 11},
		models.Bar{Index: 1, Open: 11, High: 12, Low: 10, Close: 12},
	)

	b := NewBatcher(table, testLogger())
	first, _, _ := b.Render()

	// mutating the forming bar must not touch the history batch
	require.NoError(t, table.UpdateLast(models.Bar{Index: 1, Open: 11, High: 15, Low: 10, Close: 15}))
	second, live, _ := b.Render()

	assert.Equal(t, first.End, second.End)
	assert.Equal(t, first.Bounds, second.Bounds)
	assert.Equal(t, first.Lines, second.Lines)

	assert.Equal(t, 15.0, live.Bounds.Y1)
}

func TestBatcherIncrementalExtension(t *testing.T) {
	table := testTable(t,
		models.Bar{Index: 0, Open: 10, High: 12, Low: 9, Close: 11},
		models.Bar{Index: 1, Open: 11, High: 12, Low: 10, Close: 12},
	)

	b := NewBatcher(table, testLogger())
	before, _, _ := b.Render()
	assert.Equal(t, 1, before.End)

	// appending graduates the previous forming bar into history
	_, err := table.Append([]models.Bar{{Index: 2, Open: 12, High: 13, Low: 11, Close: 12}})
	require.NoError(t, err)

	after, live, _ := b.Render()
	assert.Equal(t, 2, after.End)
	assert.Len(t, after.Lines, 6)
	assert.Equal(t, 2, live.Start)

	// earlier lines are never recompiled or moved
	assert.Equal(t, before.Lines, after.Lines[:len(before.Lines)])
}

func TestRectUnion(t *testing.T) {
	a := Rect{X0: 0, Y0: 0, X1: 1, Y1: 1, Valid: true}
	b := Rect{X0: 2, Y0: -1, X1: 3, Y1: 0.5, Valid: true}

	u := a.Union(b)
	assert.Equal(t, Rect{X0: 0, Y0: -1, X1: 3, Y1: 1, Valid: true}, u)

	// union with an empty rect is the identity
	assert.Equal(t, a, a.Union(Rect{}))
	assert.Equal(t, a, Rect{}.Union(a))
}
