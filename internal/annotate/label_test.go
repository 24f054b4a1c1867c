package annotate

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajmal017/piker/internal/cursor"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPriceFormat(t *testing.T) {
	f := PriceFormat(2)
	assert.Equal(t, "101.25", f(101.25))
	assert.Equal(t, "100 000.00", f(100000))
	assert.Equal(t, "1 234 567.89", f(1234567.891))
	assert.Equal(t, "-12 345.00", f(-12345))

	assert.Equal(t, "100", PriceFormat(0)(100.4))
}

func TestLevelLabelFootprintFixed(t *testing.T) {
	label, err := NewLevelLabel(PriceFormat(2), "100 000.00", 12, nil, OrientBottom, OrientLeft)
	require.NoError(t, err)

	w, h := label.W, label.H
	assert.Greater(t, w, 0.0)
	assert.Greater(t, h, 0.0)

	// value updates must never resize the box
	for _, level := range []float64{1, 99.5, 100000, 1234567.89} {
		label.Update(50, level)
		assert.Equal(t, w, label.W)
		assert.Equal(t, h, label.H)
	}
	assert.Equal(t, "1 234 567.89", label.Text)
}

func TestLevelLabelOrientation(t *testing.T) {
	metrics := func(text string, fontSize float64) (float64, float64) {
		return 60, 16
	}
	margin := 4.0 // lineHeight/4

	t.Run("bottom left hangs below the anchor", func(t *testing.T) {
		label, err := NewLevelLabel(PriceFormat(2), "100 000.00", 12, metrics, OrientBottom, OrientLeft)
		require.NoError(t, err)

		label.Update(100, 42)
		assert.Equal(t, -60-margin, label.X)
		assert.Equal(t, 100-margin, label.Y)
	})

	t.Run("top left sits above the anchor", func(t *testing.T) {
		label, err := NewLevelLabel(PriceFormat(2), "100 000.00", 12, metrics, OrientTop, OrientLeft)
		require.NoError(t, err)

		label.Update(100, 42)
		assert.Equal(t, -60-margin, label.X)
		assert.Equal(t, 100-16-margin, label.Y)
	})

	t.Run("middle splits the box", func(t *testing.T) {
		label, err := NewLevelLabel(PriceFormat(2), "100 000.00", 12, metrics, OrientMiddle, OrientRight)
		require.NoError(t, err)

		label.Update(100, 42)
		assert.Equal(t, -margin, label.X)
		assert.Equal(t, 100-8-margin, label.Y)
	})

	t.Run("invalid orientations", func(t *testing.T) {
		_, err := NewLevelLabel(PriceFormat(2), "x", 12, metrics, "sideways", OrientLeft)
		assert.Error(t, err)

		_, err = NewLevelLabel(PriceFormat(2), "x", 12, metrics, OrientTop, "center")
		assert.Error(t, err)
	})
}

func TestSetCreateAndDrag(t *testing.T) {
	s := NewSet(cursor.IdentityTransform, 12, nil, testLogger())

	handle, err := s.CreateLevelLine(100.0, true, PriceFormat(2), "")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	line, ok := s.Get(handle)
	require.True(t, ok)
	assert.Equal(t, 100.0, line.Level)
	assert.Equal(t, "100.00", line.Label.Text)

	w, h := line.Label.W, line.Label.H

	require.NoError(t, s.Drag(handle, 101.25))
	assert.Equal(t, 101.25, line.Level)
	assert.Equal(t, "101.25", line.Label.Text)
	assert.Equal(t, w, line.Label.W)
	assert.Equal(t, h, line.Label.H)
}

func TestSetDragErrors(t *testing.T) {
	s := NewSet(cursor.IdentityTransform, 12, nil, testLogger())

	fixed, err := s.CreateLevelLine(50.0, false, PriceFormat(2), "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Drag(fixed, 60), ErrNotDraggable)
	assert.ErrorIs(t, s.Drag(999, 60), ErrUnknownHandle)

	line, _ := s.Get(fixed)
	assert.Equal(t, 50.0, line.Level)
}

func TestSetRemove(t *testing.T) {
	s := NewSet(cursor.IdentityTransform, 12, nil, testLogger())

	a, err := s.CreateLevelLine(10, true, PriceFormat(2), "")
	require.NoError(t, err)
	b, err := s.CreateLevelLine(20, true, PriceFormat(2), "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	s.Remove(a)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get(a)
	assert.False(t, ok)

	// handles are never reused
	c, err := s.CreateLevelLine(30, true, PriceFormat(2), "")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestL1Labels(t *testing.T) {
	l1, err := NewL1Labels(2, 12, nil, cursor.IdentityTransform)
	require.NoError(t, err)

	// unknown queue size renders the placeholder glyph
	l1.SetBid(0, 100.5)
	assert.Equal(t, "? x 100.50", l1.Bid.Text)

	l1.SetBid(250, 100.5)
	assert.Equal(t, "250 x 100.50", l1.Bid.Text)

	l1.SetAsk(1000, 100000)
	assert.Equal(t, "1 000 x 100 000.00", l1.Ask.Text)

	// both boxes share the worst-case footprint
	assert.Equal(t, l1.Bid.W, l1.Ask.W)
	assert.Equal(t, l1.Bid.H, l1.Ask.H)

	// at the same level the ask box sits above the bid box
	l1.SetAsk(1000, 100.5)
	assert.InDelta(t, l1.Bid.Y-l1.Bid.H, l1.Ask.Y, 1e-9)
}
