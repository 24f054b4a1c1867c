package cursor

import (
	"github.com/ajmal017/piker/internal/render"
)

// Transform is the affine screen<->data mapping for one panel. The
// coordinate-transform service that owns the real view state feeds
// these coefficients in; the controller only ever evaluates them.
type Transform struct {
	XScale  float64
	XOffset float64
	YScale  float64
	YOffset float64
}

// IdentityTransform maps screen coordinates straight to data
// coordinates, useful for tests and headless sessions.
var IdentityTransform = Transform{XScale: 1, YScale: 1}

// ToData maps a screen position into data coordinates
func (t Transform) ToData(sx, sy float64) (float64, float64) {
	return sx*t.XScale + t.XOffset, sy*t.YScale + t.YOffset
}

// FromData maps a data position back into screen coordinates
func (t Transform) FromData(x, y float64) (float64, float64) {
	return (x - t.XOffset) / t.XScale, (y - t.YOffset) / t.YScale
}

// Dot is a cursor-dot overlay subscribed to a curve on a panel. The
// controller moves every dot to the snapped bar index on index
// transitions.
type Dot struct {
	Curve string
	Index int
}

// Panel owns the crosshair indicator set for one linked subplot: the
// vertical and horizontal lines, the y-axis label and any subscribed
// cursor dots. Fields are plain state; an external rasterizer reads
// them after each dispatch.
type Panel struct {
	ID        string
	Transform Transform

	// Bounds is the panel's layout box, used by BoundingBox only,
	// never for hit testing.
	Bounds render.Rect

	VLineX       float64
	HLineY       float64
	HLineVisible bool

	YLabel        string
	YLabelVisible bool

	Dots []*Dot
}

// NewPanel creates a panel with its indicator lines initially hidden
func NewPanel(id string, tr Transform, bounds render.Rect) *Panel {
	return &Panel{
		ID:        id,
		Transform: tr,
		Bounds:    bounds,
	}
}

// AddDot subscribes a cursor dot for the named curve and returns it
func (p *Panel) AddDot(curve string) *Dot {
	dot := &Dot{Curve: curve}
	p.Dots = append(p.Dots, dot)
	return dot
}
