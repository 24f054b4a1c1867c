package cursor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventSink collects dispatched events behind a mutex
type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) dispatch(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *eventSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDebouncerCoalescesMoves(t *testing.T) {
	sink := &eventSink{}
	d := NewDebouncer(5*time.Millisecond, 1000, sink.dispatch, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// a burst inside one coalescing window collapses to the last move
	for i := 1; i <= 10; i++ {
		d.Offer(Event{Kind: EventMove, X: float64(i), Y: float64(i)})
	}

	require.Eventually(t, func() bool { return sink.len() >= 1 }, time.Second, time.Millisecond)

	events := sink.snapshot()
	last := events[len(events)-1]
	assert.Equal(t, EventMove, last.Kind)
	assert.Equal(t, 10.0, last.X)
	assert.Less(t, len(events), 10)
}

func TestDebouncerEnterFlushesPendingMove(t *testing.T) {
	sink := &eventSink{}
	d := NewDebouncer(50*time.Millisecond, 60, sink.dispatch, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// the move is still held in its window when the barrier arrives
	d.Offer(Event{Kind: EventMove, X: 7})
	d.Offer(Event{Kind: EventEnter, PanelID: "price"})

	require.Eventually(t, func() bool { return sink.len() >= 2 }, time.Second, time.Millisecond)

	events := sink.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, EventMove, events[0].Kind)
	assert.Equal(t, 7.0, events[0].X)
	assert.Equal(t, EventEnter, events[1].Kind)
	assert.Equal(t, "price", events[1].PanelID)
}

func TestDebouncerLeavePassesThroughImmediately(t *testing.T) {
	sink := &eventSink{}
	d := NewDebouncer(time.Millisecond, 60, sink.dispatch, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Offer(Event{Kind: EventLeave, PanelID: "price"})

	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, EventLeave, sink.snapshot()[0].Kind)
}

func TestDebouncerRateLimitSpacesEmission(t *testing.T) {
	sink := &eventSink{}

	// 20 moves/s: a second move right after the first must wait for
	// the 50ms interval, not just the tiny window
	d := NewDebouncer(time.Millisecond, 20, sink.dispatch, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Offer(Event{Kind: EventMove, X: 1})
	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	d.Offer(Event{Kind: EventMove, X: 2})
	require.Eventually(t, func() bool { return sink.len() == 2 }, time.Second, time.Millisecond)

	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestDebouncerOfferNeverBlocksOnMoves(t *testing.T) {
	sink := &eventSink{}
	d := NewDebouncer(time.Millisecond, 60, sink.dispatch, testLogger())

	// without a running consumer the queue fills; moves drop instead
	// of blocking the producer
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			d.Offer(Event{Kind: EventMove, X: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Offer blocked on a full queue")
	}
}
