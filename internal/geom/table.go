package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/ajmal017/piker/pkg/models"
)

// Validation and capacity errors surfaced by Table operations. Bar
// rejections are per-bar and recoverable; a full table is not.
var (
	ErrOutOfOrderBar    = errors.New("bar index does not match next table slot")
	ErrInvalidBarValues = errors.New("bar contains non-finite values or low > high")
	ErrCapacityExceeded = errors.New("geometry table capacity exceeded")
)

// DefaultBarWidth is the half-width of the open/close arms in index
// units. 0.5 is no overlap between adjacent bars' arms, 1.0 is full
// overlap.
const DefaultBarWidth = 0.43

// Table is a fixed-capacity, append-only cache of per-bar line
// geometry. Entries [0, count) correspond 1:1 to accepted bars in
// increasing index order; the slot at count-1 belongs to the forming
// bar and is the only mutable entry.
//
// Table is not safe for concurrent use; all mutation happens on the
// chart session's dispatch goroutine.
type Table struct {
	geoms []BarGeometry
	count int
	width float64
}

// NewTable creates a table with a fixed capacity and arm half-width.
// Width zero selects DefaultBarWidth.
func NewTable(capacity int, width float64) (*Table, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid table capacity %d", capacity)
	}
	if width == 0 {
		width = DefaultBarWidth
	}
	if width < 0 || width > 0.5 {
		return nil, fmt.Errorf("invalid bar width %v: must be in (0, 0.5]", width)
	}

	return &Table{
		geoms: make([]BarGeometry, capacity),
		width: width,
	}, nil
}

// Count returns the number of bars with geometry in the table
func (t *Table) Count() int {
	return t.count
}

// Capacity returns the fixed table capacity
func (t *Table) Capacity() int {
	return len(t.geoms)
}

// Width returns the configured arm half-width
func (t *Table) Width() float64 {
	return t.width
}

// At returns the geometry for bar index i. i must be in [0, Count()).
func (t *Table) At(i int) BarGeometry {
	return t.geoms[i]
}

// Append derives geometry for each bar and writes it at the table's
// write cursor. Bars must be strictly contiguous: each bar's index
// must equal Count() at the time of its insertion. Processing stops
// at the first rejected bar, leaving the table consistent; the number
// of bars accepted is returned alongside the rejection error.
func (t *Table) Append(bars []models.Bar) (int, error) {
	for n, bar := range bars {
		if t.count == len(t.geoms) {
			return n, fmt.Errorf("appending bar %d: %w (capacity %d)", bar.Index, ErrCapacityExceeded, len(t.geoms))
		}
		if bar.Index != t.count {
			return n, fmt.Errorf("appending bar %d: %w (want %d)", bar.Index, ErrOutOfOrderBar, t.count)
		}
		if err := validateBar(bar); err != nil {
			return n, fmt.Errorf("appending bar %d: %w", bar.Index, err)
		}

		t.geoms[t.count] = barGeometry(bar, t.width)
		t.count++
	}

	return len(bars), nil
}

// UpdateLast recomputes the forming bar's geometry in place. The bar
// must carry the index of the most recent table entry; no new slot is
// allocated.
func (t *Table) UpdateLast(bar models.Bar) error {
	if t.count == 0 || bar.Index != t.count-1 {
		return fmt.Errorf("updating bar %d: %w (last is %d)", bar.Index, ErrOutOfOrderBar, t.count-1)
	}
	if err := validateBar(bar); err != nil {
		return fmt.Errorf("updating bar %d: %w", bar.Index, err)
	}

	t.geoms[bar.Index] = barGeometry(bar, t.width)
	return nil
}

// validateBar rejects bars that would corrupt the geometry: inverted
// ranges and non-finite prices or volume.
func validateBar(bar models.Bar) error {
	if bar.Low > bar.High {
		return ErrInvalidBarValues
	}
	for _, v := range [...]float64{bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.WAP} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidBarValues
		}
	}
	return nil
}

// barGeometry derives the line set for one bar. Bars are centered on
// their integer index: the open arm extends w to the left, the close
// arm w to the right.
func barGeometry(bar models.Bar, w float64) BarGeometry {
	x := float64(bar.Index)

	g := BarGeometry{
		LeftArm:  Line{X1: x - w, Y1: bar.Open, X2: x, Y2: bar.Open},
		RightArm: Line{X1: x, Y1: bar.Close, X2: x + w, Y2: bar.Close},
	}
	if bar.Low != bar.High {
		g.Body = Line{X1: x, Y1: bar.Low, X2: x, Y2: bar.High}
		g.HasBody = true
	}
	return g
}
