package cursor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// EventKind discriminates pointer events
type EventKind int

// Pointer event kinds
const (
	EventEnter EventKind = iota
	EventLeave
	EventMove
)

// Event is one raw pointer event before coalescing
type Event struct {
	Kind    EventKind
	PanelID string
	X       float64
	Y       float64
}

// Debouncer is a timer-coalescing queue between raw pointer input and
// the controller: move events arriving within the window collapse to
// the latest one, and emission is rate-limited to roughly the display
// refresh rate. Enter/leave events are ordered barriers; any pending
// move is flushed before they pass through.
//
// The dispatch callback posts into the session's single-threaded
// event loop, so controller handlers never overlap.
type Debouncer struct {
	in       chan Event
	window   time.Duration
	interval time.Duration
	dispatch func(Event)
	logger   *logrus.Entry
}

// NewDebouncer creates a debouncer. rateLimit is the maximum emitted
// moves per second; window is the coalescing delay for move bursts.
func NewDebouncer(window time.Duration, rateLimit int, dispatch func(Event), logger *logrus.Logger) *Debouncer {
	if rateLimit <= 0 {
		rateLimit = 60
	}
	return &Debouncer{
		in:       make(chan Event, 256),
		window:   window,
		interval: time.Second / time.Duration(rateLimit),
		dispatch: dispatch,
		logger:   logger.WithField("component", "cursor-debounce"),
	}
}

// Offer enqueues a raw pointer event without blocking. Move events
// dropped under backpressure are harmless since only the latest one
// survives coalescing anyway.
func (d *Debouncer) Offer(ev Event) {
	select {
	case d.in <- ev:
	default:
		if ev.Kind != EventMove {
			// never drop the ordered enter/leave barriers
			d.in <- ev
		}
	}
}

// Run consumes raw events until the context is cancelled
func (d *Debouncer) Run(ctx context.Context) {
	timer := time.NewTimer(d.window)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var (
		pending    Event
		hasPending bool
		armed      bool
		lastEmit   time.Time
	)

	flush := func() {
		if hasPending {
			d.dispatch(pending)
			hasPending = false
			lastEmit = time.Now()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-d.in:
			if ev.Kind != EventMove {
				flush()
				d.dispatch(ev)
				continue
			}

			pending = ev
			hasPending = true

			// hold the move for the coalescing window, or longer
			// when the rate limit has not elapsed yet
			delay := d.window
			if since := time.Since(lastEmit); since < d.interval && d.interval-since > delay {
				delay = d.interval - since
			}
			if armed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(delay)
			armed = true

		case <-timer.C:
			armed = false
			flush()
		}
	}
}
