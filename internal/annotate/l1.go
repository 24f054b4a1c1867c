package annotate

import (
	"fmt"

	"github.com/ajmal017/piker/internal/cursor"
)

// l1WorstCase sizes L1 label boxes once at creation; live bid/ask
// updates never change the footprint.
const l1WorstCase = "100 x 100 000"

// L1Format renders an order-book level as "{size} x {price}". When
// the queue size is unknown it falls back to a placeholder glyph.
func L1Format(digits int, size *float64) Format {
	return func(level float64) string {
		sz := "?"
		if size != nil && *size > 0 {
			sz = formatGrouped(*size, 0)
		}
		return fmt.Sprintf("%s x %s", sz, formatGrouped(level, digits))
	}
}

// L1Labels is the top-of-book bid/ask annotation pair anchored to the
// price axis: the bid label hangs below its level, the ask label sits
// above it.
type L1Labels struct {
	Bid *LevelLabel
	Ask *LevelLabel

	bidSize float64
	askSize float64

	transform cursor.Transform
}

// NewL1Labels creates the bid/ask label pair, pre-measured against
// the worst-case order-book string
func NewL1Labels(digits int, fontSize float64, metrics FontMetrics, tr cursor.Transform) (*L1Labels, error) {
	l := &L1Labels{transform: tr}

	bid, err := NewLevelLabel(L1Format(digits, &l.bidSize), l1WorstCase, fontSize, metrics, OrientBottom, OrientLeft)
	if err != nil {
		return nil, fmt.Errorf("failed to create bid label: %w", err)
	}
	ask, err := NewLevelLabel(L1Format(digits, &l.askSize), l1WorstCase, fontSize, metrics, OrientTop, OrientLeft)
	if err != nil {
		return nil, fmt.Errorf("failed to create ask label: %w", err)
	}

	l.Bid = bid
	l.Ask = ask
	return l, nil
}

// SetBid updates the bid label with a new queue size and price
func (l *L1Labels) SetBid(size, price float64) {
	l.bidSize = size
	l.Bid.Update(l.axisY(price), price)
}

// SetAsk updates the ask label with a new queue size and price
func (l *L1Labels) SetAsk(size, price float64) {
	l.askSize = size
	l.Ask.Update(l.axisY(price), price)
}

func (l *L1Labels) axisY(level float64) float64 {
	_, sy := l.transform.FromData(0, level)
	return sy
}
