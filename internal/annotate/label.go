package annotate

import (
	"fmt"
)

// Vertical orientation of a label around its anchor point
const (
	OrientTop    = "top"
	OrientBottom = "bottom"
	OrientMiddle = "middle"
)

// Horizontal orientation of a label relative to the price axis
const (
	OrientLeft  = "left"
	OrientRight = "right"
)

// LevelLabel is a price-level text label anchored to the y axis. Its
// bounding box is pre-measured once against a worst-case string so
// value updates never change the footprint; this avoids layout jitter
// on every tick.
type LevelLabel struct {
	format   Format
	metrics  FontMetrics
	fontSize float64

	vShift float64
	hShift float64

	// pre-measured footprint, fixed for the label's lifetime
	W float64
	H float64

	Text  string
	Level float64

	// position of the label box relative to its anchor axis
	X float64
	Y float64
}

// NewLevelLabel creates a label and pre-measures its footprint
// against worstCase. orientV/orientH select which side of the anchor
// the box sits on.
func NewLevelLabel(format Format, worstCase string, fontSize float64, metrics FontMetrics, orientV, orientH string) (*LevelLabel, error) {
	if metrics == nil {
		metrics = DefaultFontMetrics
	}

	var vShift float64
	switch orientV {
	case OrientTop:
		vShift = 1
	case OrientBottom:
		vShift = 0
	case OrientMiddle:
		vShift = 0.5
	default:
		return nil, fmt.Errorf("invalid vertical orientation %q", orientV)
	}

	var hShift float64
	switch orientH {
	case OrientLeft:
		hShift = -1
	case OrientRight:
		hShift = 0
	default:
		return nil, fmt.Errorf("invalid horizontal orientation %q", orientH)
	}

	w, h := metrics(worstCase, fontSize)

	return &LevelLabel{
		format:   format,
		metrics:  metrics,
		fontSize: fontSize,
		vShift:   vShift,
		hShift:   hShift,
		W:        w,
		H:        h,
	}, nil
}

// Update recomputes the label text for level and repositions the box
// relative to the axis anchor at screen y axisY. The vertical offset
// is proportional to the measured height, the horizontal offset to
// the measured width for left-anchored labels, plus a margin derived
// from the current font metrics.
func (l *LevelLabel) Update(axisY, level float64) {
	l.Text = l.format(level)
	l.Level = level

	margin := l.margin()
	l.X = l.hShift*l.W - margin
	l.Y = axisY - l.vShift*l.H - margin
}

// margin is the anchor gap, always derived from font metrics
func (l *LevelLabel) margin() float64 {
	_, lineH := l.metrics("0", l.fontSize)
	return lineH / 4
}
