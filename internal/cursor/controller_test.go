package cursor

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajmal017/piker/internal/render"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// contentsRecorder records UpdateContents calls per panel
type contentsRecorder struct {
	calls map[string][]int
}

func newContentsRecorder() *contentsRecorder {
	return &contentsRecorder{calls: make(map[string][]int)}
}

func (r *contentsRecorder) UpdateContents(panelID string, barIndex int) {
	r.calls[panelID] = append(r.calls[panelID], barIndex)
}

func twoPanelController(t *testing.T) (*Controller, *Panel, *Panel) {
	t.Helper()
	c := NewController(2, testLogger())
	price := NewPanel("price", IdentityTransform, render.Rect{X0: 0, Y0: 0, X1: 100, Y1: 50, Valid: true})
	volume := NewPanel("volume", IdentityTransform, render.Rect{X0: 0, Y0: 50, X1: 100, Y1: 80, Valid: true})
	c.RegisterPanel(price)
	c.RegisterPanel(volume)
	return c, price, volume
}

func TestControllerRegisterPanel(t *testing.T) {
	c, price, _ := twoPanelController(t)

	assert.Equal(t, []string{"price", "volume"}, c.PanelIDs())

	// duplicate registration is ignored
	c.RegisterPanel(NewPanel("price", IdentityTransform, render.Rect{}))
	assert.Equal(t, []string{"price", "volume"}, c.PanelIDs())

	got, ok := c.Panel("price")
	require.True(t, ok)
	assert.Same(t, price, got)
}

func TestControllerEnterLeave(t *testing.T) {
	c, price, volume := twoPanelController(t)

	assert.Equal(t, "", c.ActivePanelID())

	c.PointerEnter("price")
	assert.Equal(t, "price", c.ActivePanelID())
	assert.True(t, price.HLineVisible)
	assert.True(t, price.YLabelVisible)

	// entering the adjacent panel moves activation without an
	// intervening leave
	c.PointerEnter("volume")
	assert.Equal(t, "volume", c.ActivePanelID())
	assert.True(t, volume.HLineVisible)

	// the late leave from the old panel must not deactivate the new one
	c.PointerLeave("price")
	assert.Equal(t, "volume", c.ActivePanelID())
	assert.True(t, volume.HLineVisible)

	c.PointerLeave("volume")
	assert.Equal(t, "", c.ActivePanelID())
	assert.False(t, volume.HLineVisible)
	assert.False(t, volume.YLabelVisible)
}

func TestControllerEnterUnknownPanel(t *testing.T) {
	c, _, _ := twoPanelController(t)
	c.PointerEnter("nope")
	assert.Equal(t, "", c.ActivePanelID())
}

func TestControllerMoveRequiresActivePanel(t *testing.T) {
	c, price, _ := twoPanelController(t)
	c.PointerMove(3, 42)
	assert.Equal(t, 0.0, price.VLineX)
	assert.Empty(t, price.YLabel)
}

func TestControllerMoveSnapsAndDedups(t *testing.T) {
	c, price, volume := twoPanelController(t)
	rec := newContentsRecorder()
	c.SetContentsRenderer(rec)

	var updates []Update
	c.SetNotifier(func(u Update) { updates = append(updates, u) })

	dot := volume.AddDot("vwap")

	c.PointerEnter("price")
	c.PointerMove(2.2, 101.234)

	// full refresh: both panels' vertical lines on the snapped index
	assert.Equal(t, 2.0, price.VLineX)
	assert.Equal(t, 2.0, volume.VLineX)
	assert.Equal(t, 2, dot.Index)
	assert.Equal(t, 101.234, price.HLineY)
	assert.Equal(t, "101.23", price.YLabel)
	assert.Equal(t, "2.20", c.XLabel)
	assert.Equal(t, map[string][]int{"price": {2}, "volume": {2}}, rec.calls)
	require.Len(t, updates, 1)
	assert.Equal(t, Update{PanelID: "price", SnappedIndex: 2, X: 2.2, Y: 101.234}, updates[0])

	// same snapped index: only the active panel's hline and y label move
	c.PointerMove(2.4, 103.5)
	assert.Equal(t, 103.5, price.HLineY)
	assert.Equal(t, "103.50", price.YLabel)
	assert.Equal(t, "2.20", c.XLabel)
	assert.Len(t, rec.calls["price"], 1)
	assert.Len(t, updates, 1)

	// crossing the halfway point triggers the next full refresh
	c.PointerMove(2.6, 103.5)
	assert.Equal(t, 3.0, price.VLineX)
	assert.Equal(t, 3.0, volume.VLineX)
	assert.Equal(t, 3, dot.Index)
	assert.Len(t, updates, 2)
}

func TestControllerMoveUsesPanelTransform(t *testing.T) {
	c := NewController(2, testLogger())
	p := NewPanel("price", Transform{XScale: 0.1, XOffset: -5, YScale: -2, YOffset: 200}, render.Rect{})
	c.RegisterPanel(p)

	c.PointerEnter("price")
	c.PointerMove(72, 40)

	// x = 72*0.1 - 5 = 2.2, y = 40*-2 + 200 = 120
	assert.Equal(t, 2.0, p.VLineX)
	assert.Equal(t, 120.0, p.HLineY)
	assert.Equal(t, "120.00", p.YLabel)
}

func TestControllerBoundingBox(t *testing.T) {
	c, price, volume := twoPanelController(t)

	// no active panel: fall back to the first registered panel
	assert.Equal(t, price.Bounds, c.BoundingBox())

	c.PointerEnter("volume")
	assert.Equal(t, volume.Bounds, c.BoundingBox())

	empty := NewController(2, testLogger())
	assert.Equal(t, render.Rect{}, empty.BoundingBox())
}
