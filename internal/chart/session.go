package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/ajmal017/piker/internal/annotate"
	"github.com/ajmal017/piker/internal/cursor"
	"github.com/ajmal017/piker/internal/geom"
	"github.com/ajmal017/piker/internal/render"
	"github.com/ajmal017/piker/pkg/models"

	"github.com/sirupsen/logrus"
)

// Options configures a chart session
type Options struct {
	Capacity int
	BarWidth float64
	Digits   int
	FontSize float64
	// Debounce parameters for the pointer event queue
	DebounceWindow time.Duration
	RateLimit      int
}

// Snapshot is the compiled render state handed to the rasterizer: the
// two draw batches plus their combined bounding box.
type Snapshot struct {
	Symbol  string       `json:"symbol"`
	Count   int          `json:"count"`
	History render.Batch `json:"history"`
	Live    render.Batch `json:"live"`
	Bounds  render.Rect  `json:"bounds"`
}

// Session owns one symbol's chart state: the geometry table, the
// render batcher, the crosshair controller and the level annotations.
// Everything runs on a single dispatch goroutine; collaborators post
// work through Dispatch/Do and never touch internals directly.
type Session struct {
	symbol string

	table      *geom.Table
	batcher    *render.Batcher
	controller *cursor.Controller
	debouncer  *cursor.Debouncer
	levels     *annotate.Set
	l1         *annotate.L1Labels

	// accepted bars in index order, for contents-label lookups
	bars []models.Bar

	// latest OHLCV contents text per panel
	contents map[string]string

	tasks  chan func()
	logger *logrus.Entry
}

// NewSession creates a session with an empty geometry table
func NewSession(symbol string, opts Options, logger *logrus.Logger) (*Session, error) {
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}

	table, err := geom.NewTable(opts.Capacity, opts.BarWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to create geometry table: %w", err)
	}

	s := &Session{
		symbol:     symbol,
		table:      table,
		batcher:    render.NewBatcher(table, logger),
		controller: cursor.NewController(opts.Digits, logger),
		bars:       make([]models.Bar, 0, opts.Capacity),
		contents:   make(map[string]string),
		tasks:      make(chan func(), 1024),
		logger:     logger.WithField("component", "chart-session").WithField("symbol", symbol),
	}

	s.controller.SetContentsRenderer(s)

	s.levels = annotate.NewSet(cursor.IdentityTransform, opts.FontSize, nil, logger)
	s.l1, err = annotate.NewL1Labels(opts.Digits, opts.FontSize, nil, cursor.IdentityTransform)
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 labels: %w", err)
	}

	s.debouncer = cursor.NewDebouncer(opts.DebounceWindow, opts.RateLimit, s.applyPointerEvent, logger)

	return s, nil
}

// Symbol returns the session's symbol
func (s *Session) Symbol() string {
	return s.symbol
}

// Cursor returns the session's crosshair controller. Access it only
// from dispatched tasks.
func (s *Session) Cursor() *cursor.Controller {
	return s.controller
}

// Levels returns the session's level-line set. Access it only from
// dispatched tasks.
func (s *Session) Levels() *annotate.Set {
	return s.levels
}

// L1 returns the session's top-of-book labels. Access it only from
// dispatched tasks.
func (s *Session) L1() *annotate.L1Labels {
	return s.l1
}

// Run executes dispatched tasks until the context is cancelled. This
// goroutine is the session's single logical thread; geometry
// mutation, batch compilation and cursor transitions never run
// concurrently with each other.
func (s *Session) Run(ctx context.Context) {
	go s.debouncer.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.tasks:
			fn()
		}
	}
}

// Dispatch posts fn onto the session's event loop
func (s *Session) Dispatch(fn func()) {
	s.tasks <- fn
}

// Do posts fn onto the event loop and waits for it to finish, for
// collaborators that need a synchronous read.
func (s *Session) Do(fn func()) {
	done := make(chan struct{})
	s.tasks <- func() {
		fn()
		close(done)
	}
	<-done
}

// Append accepts newly closed bars, deriving geometry for each.
// Rejected bars do not advance the table; the count of accepted bars
// is returned with the rejection error.
func (s *Session) Append(bars []models.Bar) (int, error) {
	accepted, err := s.table.Append(bars)
	s.bars = append(s.bars, bars[:accepted]...)
	return accepted, err
}

// UpdateLast mutates the forming bar in place
func (s *Session) UpdateLast(bar models.Bar) error {
	if err := s.table.UpdateLast(bar); err != nil {
		return err
	}
	s.bars[len(s.bars)-1] = bar
	return nil
}

// Count returns the number of accepted bars
func (s *Session) Count() int {
	return s.table.Count()
}

// Bar returns the accepted bar at index i
func (s *Session) Bar(i int) (models.Bar, bool) {
	if i < 0 || i >= len(s.bars) {
		return models.Bar{}, false
	}
	return s.bars[i], true
}

// Render compiles and returns the current snapshot
func (s *Session) Render() Snapshot {
	history, live, bounds := s.batcher.Render()
	return Snapshot{
		Symbol:  s.symbol,
		Count:   s.table.Count(),
		History: history,
		Live:    live,
		Bounds:  bounds,
	}
}

// RegisterPanel adds a linked panel to the crosshair group
func (s *Session) RegisterPanel(id string, tr cursor.Transform, bounds render.Rect) *cursor.Panel {
	p := cursor.NewPanel(id, tr, bounds)
	s.controller.RegisterPanel(p)
	return p
}

// PanelIDs returns the registered panel ids in registration order
func (s *Session) PanelIDs() []string {
	return s.controller.PanelIDs()
}

// Pointer enqueues a raw pointer event; the debouncer coalesces
// bursts before they reach the controller.
func (s *Session) Pointer(ev cursor.Event) {
	s.debouncer.Offer(ev)
}

// applyPointerEvent routes one debounced event onto the dispatch loop
func (s *Session) applyPointerEvent(ev cursor.Event) {
	s.Dispatch(func() {
		switch ev.Kind {
		case cursor.EventEnter:
			s.controller.PointerEnter(ev.PanelID)
		case cursor.EventLeave:
			s.controller.PointerLeave(ev.PanelID)
		case cursor.EventMove:
			s.controller.PointerMove(ev.X, ev.Y)
		}
	})
}

// ApplyQuote updates the top-of-book labels from an L1 quote
func (s *Session) ApplyQuote(q *models.QuoteData) {
	if q.BidPrice > 0 {
		s.l1.SetBid(q.BidSize, q.BidPrice)
	}
	if q.AskPrice > 0 {
		s.l1.SetAsk(q.AskSize, q.AskPrice)
	}
}

// UpdateContents renders the OHLCV contents text for a bar on a
// panel, satisfying cursor.ContentsRenderer.
func (s *Session) UpdateContents(panelID string, barIndex int) {
	bar, ok := s.Bar(barIndex)
	if !ok {
		// cursor is off the data range; leave the previous text
		return
	}

	s.contents[panelID] = fmt.Sprintf("i:%d O:%g H:%g L:%g C:%g V:%g",
		bar.Index, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
}

// Contents returns the latest contents-label text for a panel
func (s *Session) Contents(panelID string) string {
	return s.contents[panelID]
}
