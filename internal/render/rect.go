package render

import (
	"github.com/ajmal017/piker/internal/geom"
)

// Rect is an axis-aligned bounding box in data coordinates. The zero
// value is the empty rect.
type Rect struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Valid bool    `json:"valid"`
}

// Union returns the smallest rect covering both r and other
func (r Rect) Union(other Rect) Rect {
	if !r.Valid {
		return other
	}
	if !other.Valid {
		return r
	}

	return Rect{
		X0:    min(r.X0, other.X0),
		Y0:    min(r.Y0, other.Y0),
		X1:    max(r.X1, other.X1),
		Y1:    max(r.Y1, other.Y1),
		Valid: true,
	}
}

// ExpandLine grows r to cover the given line segment
func (r Rect) ExpandLine(l geom.Line) Rect {
	lr := Rect{
		X0:    min(l.X1, l.X2),
		Y0:    min(l.Y1, l.Y2),
		X1:    max(l.X1, l.X2),
		Y1:    max(l.Y1, l.Y2),
		Valid: true,
	}
	return r.Union(lr)
}

// Width returns the rect's horizontal extent
func (r Rect) Width() float64 {
	if !r.Valid {
		return 0
	}
	return r.X1 - r.X0
}

// Height returns the rect's vertical extent
func (r Rect) Height() float64 {
	if !r.Valid {
		return 0
	}
	return r.Y1 - r.Y0
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
