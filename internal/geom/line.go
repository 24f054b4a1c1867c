package geom

// Line is a single line segment in data coordinates: x in bar-index
// units, y in price units.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// BarGeometry is the drawable line set derived from exactly one bar.
// Body is the high-low vertical; it is omitted entirely when the bar
// has zero range (drawing a zero-height line produces a render
// artifact). LeftArm marks the open, RightArm the close.
type BarGeometry struct {
	Body     Line `json:"body"`
	HasBody  bool `json:"has_body"`
	LeftArm  Line `json:"left_arm"`
	RightArm Line `json:"right_arm"`
}

// Lines appends the geometry's present segments to dst and returns it
func (g BarGeometry) Lines(dst []Line) []Line {
	if g.HasBody {
		dst = append(dst, g.Body)
	}
	return append(dst, g.LeftArm, g.RightArm)
}
