package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ajmal017/piker/internal/cache"
	"github.com/ajmal017/piker/internal/chart"
	"github.com/ajmal017/piker/internal/database"
	"github.com/ajmal017/piker/internal/geom"
	"github.com/ajmal017/piker/internal/messaging"
	"github.com/ajmal017/piker/pkg/models"

	"github.com/sirupsen/logrus"
)

// symbolState tracks the forming bar for one symbol's series
type symbolState struct {
	formingTS time.Time
	hasBar    bool
	halted    bool
}

// Consumer bridges the NATS bar/quote feed into chart sessions. Live
// messages mutate the forming bar in place; final messages freeze it
// so the next live message appends a new one. Per-bar validation
// failures are logged and skipped (the feed may retry with corrected
// values); a full geometry table halts the symbol's feed for good.
type Consumer struct {
	nats    *messaging.NATSClient
	manager *chart.Manager
	influx  *database.InfluxClient
	redis   *cache.RedisClient

	resolution string

	states  map[string]*symbolState
	stateMu sync.Mutex

	logger *logrus.Entry
}

// NewConsumer creates a feed consumer
func NewConsumer(
	nats *messaging.NATSClient,
	manager *chart.Manager,
	influx *database.InfluxClient,
	redis *cache.RedisClient,
	resolution string,
	logger *logrus.Logger,
) *Consumer {
	return &Consumer{
		nats:       nats,
		manager:    manager,
		influx:     influx,
		redis:      redis,
		resolution: resolution,
		states:     make(map[string]*symbolState),
		logger:     logger.WithField("component", "feed"),
	}
}

// Start subscribes to the bar and quote subjects for the managed
// symbols
func (c *Consumer) Start(ctx context.Context) error {
	symbols := c.manager.Symbols()

	if err := c.nats.SubscribeBars(func(msg *models.BarMessage) {
		c.handleBar(ctx, msg)
	}, symbols...); err != nil {
		return err
	}

	return c.nats.SubscribeQuotes(func(quote *models.QuoteData) {
		c.handleQuote(ctx, quote)
	}, symbols...)
}

// state returns the per-symbol feed state, creating it on first use
func (c *Consumer) state(symbol string) *symbolState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	st, ok := c.states[symbol]
	if !ok {
		st = &symbolState{}
		c.states[symbol] = st
	}
	return st
}

// handleBar applies one feed message to its session on the session's
// dispatch loop
func (c *Consumer) handleBar(ctx context.Context, msg *models.BarMessage) {
	session, ok := c.manager.Get(msg.Symbol)
	if !ok {
		return
	}

	st := c.state(msg.Symbol)

	c.stateMu.Lock()
	halted := st.halted
	c.stateMu.Unlock()
	if halted {
		return
	}

	session.Dispatch(func() {
		c.applyBar(session, st, msg)
	})

	if msg.Final && c.influx != nil {
		bar := msg.Bar
		go func() {
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := c.influx.WriteBar(writeCtx, msg.Symbol, &bar, c.resolution); err != nil {
				c.logger.WithError(err).WithField("symbol", msg.Symbol).Warn("Failed to persist closed bar")
			}
		}()
	}
}

// applyBar runs on the session dispatch goroutine
func (c *Consumer) applyBar(session *chart.Session, st *symbolState, msg *models.BarMessage) {
	bar := msg.Bar

	c.stateMu.Lock()
	mutateForming := st.hasBar && session.Count() > 0 &&
		(bar.Timestamp.IsZero() || bar.Timestamp.Equal(st.formingTS))
	c.stateMu.Unlock()

	var err error
	if mutateForming {
		bar.Index = session.Count() - 1
		err = session.UpdateLast(bar)
	} else {
		bar.Index = session.Count()
		_, err = session.Append([]models.Bar{bar})
	}

	if err != nil {
		if errors.Is(err, geom.ErrCapacityExceeded) {
			// fatal for this series: stop consuming, leave the
			// existing render state intact
			c.stateMu.Lock()
			st.halted = true
			c.stateMu.Unlock()
			c.logger.WithError(err).WithField("symbol", msg.Symbol).Error("Geometry table full, feed halted")
			return
		}

		// recoverable per-bar rejection: the table is unchanged
		c.logger.WithError(err).WithFields(logrus.Fields{
			"symbol": msg.Symbol,
			"index":  bar.Index,
			"final":  msg.Final,
		}).Warn("Bar rejected")
		return
	}

	c.stateMu.Lock()
	if msg.Final {
		// frozen: the next live message starts a new forming bar
		st.hasBar = false
		st.formingTS = time.Time{}
	} else {
		st.hasBar = true
		st.formingTS = bar.Timestamp
	}
	c.stateMu.Unlock()
}

// handleQuote routes an L1 quote to its session and refreshes the
// quote cache
func (c *Consumer) handleQuote(ctx context.Context, quote *models.QuoteData) {
	session, ok := c.manager.Get(quote.Symbol)
	if !ok {
		return
	}

	session.Dispatch(func() {
		session.ApplyQuote(quote)
	})

	if c.redis != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.redis.SetQuote(cacheCtx, quote); err != nil {
			c.logger.WithError(err).WithField("symbol", quote.Symbol).Debug("Quote cache write failed")
		}
	}
}
