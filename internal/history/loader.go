package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ajmal017/piker/internal/cache"
	"github.com/ajmal017/piker/internal/chart"
	"github.com/ajmal017/piker/internal/database"
	"github.com/ajmal017/piker/pkg/models"

	"github.com/sirupsen/logrus"
)

// Loader seeds a chart session's geometry table with historical bars,
// preferring the Redis window cache and falling back to InfluxDB.
type Loader struct {
	influx *database.InfluxClient
	redis  *cache.RedisClient
	logger *logrus.Entry
}

// NewLoader creates a history loader
func NewLoader(influx *database.InfluxClient, redis *cache.RedisClient, logger *logrus.Logger) *Loader {
	return &Loader{
		influx: influx,
		redis:  redis,
		logger: logger.WithField("component", "history-loader"),
	}
}

// Seed loads up to window of history for the session's symbol and
// appends it to the geometry table in one batch. Bars are stamped
// with contiguous indices starting at the session's current count.
func (l *Loader) Seed(ctx context.Context, session *chart.Session, resolution string, window time.Duration) error {
	symbol := session.Symbol()

	bars, fromCache, err := l.fetch(ctx, symbol, resolution, window)
	if err != nil {
		return fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	if len(bars) == 0 {
		l.logger.WithField("symbol", symbol).Info("No history to seed")
		return nil
	}

	var (
		accepted  int
		appendErr error
	)
	session.Do(func() {
		batch := make([]models.Bar, len(bars))
		next := session.Count()
		for i, bar := range bars {
			batch[i] = *bar
			batch[i].Index = next + i
		}
		accepted, appendErr = session.Append(batch)
	})
	if appendErr != nil {
		return fmt.Errorf("failed to seed %s after %d bars: %w", symbol, accepted, appendErr)
	}

	l.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"bars":   accepted,
		"cached": fromCache,
	}).Info("History seeded")

	return nil
}

// fetch returns the symbol's bar window, trying the cache first
func (l *Loader) fetch(ctx context.Context, symbol, resolution string, window time.Duration) ([]*models.Bar, bool, error) {
	if l.redis != nil {
		bars, err := l.redis.GetBars(ctx, symbol, resolution)
		if err != nil {
			l.logger.WithError(err).WithField("symbol", symbol).Warn("Bar cache read failed")
		} else if len(bars) > 0 {
			return bars, true, nil
		}
	}

	to := time.Now()
	from := to.Add(-window)

	bars, err := l.influx.GetBars(ctx, symbol, from, to, resolution)
	if err != nil {
		return nil, false, err
	}

	if l.redis != nil && len(bars) > 0 {
		if err := l.redis.SetBars(ctx, symbol, resolution, bars); err != nil {
			l.logger.WithError(err).WithField("symbol", symbol).Warn("Bar cache write failed")
		}
	}

	return bars, false, nil
}
