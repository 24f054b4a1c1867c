package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajmal017/piker/pkg/models"
)

func TestNewTable(t *testing.T) {
	t.Run("invalid capacity", func(t *testing.T) {
		_, err := NewTable(0, 0.43)
		assert.Error(t, err)

		_, err = NewTable(-1, 0.43)
		assert.Error(t, err)
	})

	t.Run("invalid width", func(t *testing.T) {
		_, err := NewTable(10, 0.6)
		assert.Error(t, err)

		_, err = NewTable(10, -0.1)
		assert.Error(t, err)
	})

	t.Run("zero width selects default", func(t *testing.T) {
		table, err := NewTable(10, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultBarWidth, table.Width())
	})
}

func TestTableAppend(t *testing.T) {
	bars := []models.Bar{
		{Index: 0, Open: 10, High: 12, Low: 9, Close: 11},
		{Index: 1, Open: 11, High: 11, Low: 11, Close: 11},
		{Index: 2, Open: 11, High: 14, Low: 10, Close: 13},
	}

	table, err := NewTable(100, 0.43)
	require.NoError(t, err)

	accepted, err := table.Append(bars)
	require.NoError(t, err)
	assert.Equal(t, 3, accepted)
	assert.Equal(t, 3, table.Count())

	t.Run("arms centered on the index", func(t *testing.T) {
		g := table.At(0)
		assert.Equal(t, Line{X1: -0.43, Y1: 10, X2: 0, Y2: 10}, g.LeftArm)
		assert.Equal(t, Line{X1: 0, Y1: 11, X2: 0.43, Y2: 11}, g.RightArm)

		g = table.At(2)
		assert.Equal(t, Line{X1: 1.57, Y1: 11, X2: 2, Y2: 11}, g.LeftArm)
		assert.Equal(t, Line{X1: 2, Y1: 13, X2: 2.43, Y2: 13}, g.RightArm)
	})

	t.Run("body spans low to high", func(t *testing.T) {
		g := table.At(0)
		assert.True(t, g.HasBody)
		assert.Equal(t, Line{X1: 0, Y1: 9, X2: 0, Y2: 12}, g.Body)
	})

	t.Run("zero-range bar has no body", func(t *testing.T) {
		g := table.At(1)
		assert.False(t, g.HasBody)
		assert.Len(t, g.Lines(nil), 2)
	})
}

func TestTableAppendRejections(t *testing.T) {
	t.Run("out of order", func(t *testing.T) {
		table, err := NewTable(10, 0.43)
		require.NoError(t, err)

		accepted, err := table.Append([]models.Bar{{Index: 5, Open: 1, High: 1, Low: 1, Close: 1}})
		assert.ErrorIs(t, err, ErrOutOfOrderBar)
		assert.Equal(t, 0, accepted)
		assert.Equal(t, 0, table.Count())
	})

	t.Run("stops at first rejection", func(t *testing.T) {
		table, err := NewTable(10, 0.43)
		require.NoError(t, err)

		accepted, err := table.Append([]models.Bar{
			{Index: 0, Open: 1, High: 2, Low: 1, Close: 2},
			{Index: 1, Open: 2, High: 1, Low: 3, Close: 2}, // low > high
			{Index: 2, Open: 2, High: 3, Low: 2, Close: 3},
		})
		assert.ErrorIs(t, err, ErrInvalidBarValues)
		assert.Equal(t, 1, accepted)
		assert.Equal(t, 1, table.Count())
	})

	t.Run("non-finite values", func(t *testing.T) {
		table, err := NewTable(10, 0.43)
		require.NoError(t, err)

		for _, bar := range []models.Bar{
			{Index: 0, Open: math.NaN(), High: 2, Low: 1, Close: 2},
			{Index: 0, Open: 1, High: math.Inf(1), Low: 1, Close: 2},
			{Index: 0, Open: 1, High: 2, Low: 1, Close: 2, Volume: math.Inf(-1)},
		} {
			accepted, err := table.Append([]models.Bar{bar})
			assert.ErrorIs(t, err, ErrInvalidBarValues)
			assert.Equal(t, 0, accepted)
		}
		assert.Equal(t, 0, table.Count())
	})

	t.Run("capacity exceeded", func(t *testing.T) {
		table, err := NewTable(2, 0.43)
		require.NoError(t, err)

		accepted, err := table.Append([]models.Bar{
			{Index: 0, Open: 1, High: 2, Low: 1, Close: 2},
			{Index: 1, Open: 2, High: 3, Low: 2, Close: 3},
			{Index: 2, Open: 3, High: 4, Low: 3, Close: 4},
		})
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		assert.Equal(t, 2, accepted)
		assert.Equal(t, 2, table.Count())
	})
}

func TestTableUpdateLast(t *testing.T) {
	table, err := NewTable(10, 0.43)
	require.NoError(t, err)

	t.Run("empty table", func(t *testing.T) {
		err := table.UpdateLast(models.Bar{Index: 0, Open: 1, High: 2, Low: 1, Close: 2})
		assert.ErrorIs(t, err, ErrOutOfOrderBar)
	})

	_, err = table.Append([]models.Bar{
		{Index: 0, Open: 10, High: 12, Low: 9, Close: 11},
		{Index: 1, Open: 11, High: 11, Low: 11, Close: 11},
	})
	require.NoError(t, err)

	t.Run("mutates in place without advancing the count", func(t *testing.T) {
		err := table.UpdateLast(models.Bar{Index: 1, Open: 11, High: 13, Low: 11, Close: 12})
		require.NoError(t, err)
		assert.Equal(t, 2, table.Count())

		g := table.At(1)
		assert.True(t, g.HasBody)
		assert.Equal(t, Line{X1: 1, Y1: 11, X2: 1, Y2: 13}, g.Body)
		assert.Equal(t, Line{X1: 1, Y1: 12, X2: 1.43, Y2: 12}, g.RightArm)
	})

	t.Run("is idempotent", func(t *testing.T) {
		bar := models.Bar{Index: 1, Open: 11, High: 13, Low: 11, Close: 12}
		require.NoError(t, table.UpdateLast(bar))
		first := table.At(1)
		require.NoError(t, table.UpdateLast(bar))
		assert.Equal(t, first, table.At(1))
	})

	t.Run("rejects a stale index", func(t *testing.T) {
		err := table.UpdateLast(models.Bar{Index: 0, Open: 10, High: 12, Low: 9, Close: 11})
		assert.ErrorIs(t, err, ErrOutOfOrderBar)
	})

	t.Run("rejects invalid values without clobbering geometry", func(t *testing.T) {
		before := table.At(1)
		err := table.UpdateLast(models.Bar{Index: 1, Open: 11, High: 10, Low: 12, Close: 11})
		assert.ErrorIs(t, err, ErrInvalidBarValues)
		assert.Equal(t, before, table.At(1))
	})
}
