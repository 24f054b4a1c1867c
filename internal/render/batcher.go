package render

import (
	"github.com/ajmal017/piker/internal/geom"

	"github.com/sirupsen/logrus"
)

// Batch is a compiled, immutable draw-command list over the geometry
// range [Start, End), plus its bounding box. The rasterizer consumes
// batches as-is; they are never mutated after Render returns them.
type Batch struct {
	Start  int         `json:"start"`
	End    int         `json:"end"`
	Lines  []geom.Line `json:"lines"`
	Bounds Rect        `json:"bounds"`
}

// Batcher compiles a geometry table into two draw batches: "history"
// covering every closed bar and "live" covering the single forming
// bar. The history compile is extended only when the table's count
// advances past a previously final bar, so per-frame cost never
// scales with total history length.
//
// Batcher is not safe for concurrent use; see Table.
type Batcher struct {
	table *geom.Table

	// history compile state. histLines is append-only: graduated
	// bars are compiled once and their lines never move.
	histLines  []geom.Line
	histBounds Rect
	histEnd    int
	history    Batch

	logger *logrus.Entry
}

// NewBatcher creates a batcher over the given geometry table
func NewBatcher(table *geom.Table, logger *logrus.Logger) *Batcher {
	return &Batcher{
		table:     table,
		histLines: make([]geom.Line, 0, 3*table.Capacity()),
		logger:    logger.WithField("component", "render-batcher"),
	}
}

// Render returns the history batch, the live batch and their combined
// bounding box. The history batch is recompiled (incrementally) only
// on calls where a new bar has been appended since the previous call;
// the live batch is rebuilt every call.
func (b *Batcher) Render() (Batch, Batch, Rect) {
	count := b.table.Count()

	histEnd := count - 1
	if histEnd < 0 {
		histEnd = 0
	}

	if histEnd != b.histEnd {
		b.compileHistory(histEnd)
	}

	live := b.compileLive(count)
	return b.history, live, b.history.Bounds.Union(live.Bounds)
}

// compileHistory extends the history compile to cover [0, histEnd).
// Only bars graduated since the last compile are rasterized into the
// command list.
func (b *Batcher) compileHistory(histEnd int) {
	for i := b.histEnd; i < histEnd; i++ {
		g := b.table.At(i)
		start := len(b.histLines)
		b.histLines = g.Lines(b.histLines)
		for _, l := range b.histLines[start:] {
			b.histBounds = b.histBounds.ExpandLine(l)
		}
	}

	b.logger.WithFields(logrus.Fields{
		"from": b.histEnd,
		"to":   histEnd,
	}).Debug("History batch recompiled")

	b.histEnd = histEnd
	b.history = Batch{
		End:    histEnd,
		Lines:  b.histLines[:len(b.histLines):len(b.histLines)],
		Bounds: b.histBounds,
	}
}

// compileLive builds the single-bar batch for the forming bar
func (b *Batcher) compileLive(count int) Batch {
	if count == 0 {
		return Batch{}
	}

	g := b.table.At(count - 1)
	lines := g.Lines(make([]geom.Line, 0, 3))

	var bounds Rect
	for _, l := range lines {
		bounds = bounds.ExpandLine(l)
	}

	return Batch{
		Start:  count - 1,
		End:    count,
		Lines:  lines,
		Bounds: bounds,
	}
}
