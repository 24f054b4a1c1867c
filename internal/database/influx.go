package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ajmal017/piker/pkg/config"
	"github.com/ajmal017/piker/pkg/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

// InfluxClient handles InfluxDB time-series operations for historical
// OHLCV bars
type InfluxClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	logger   *logrus.Entry
	cfg      *config.InfluxConfig
	bucket   string
}

// NewInfluxClient creates a new InfluxDB client
func NewInfluxClient(cfg *config.InfluxConfig, logger *logrus.Logger) *InfluxClient {
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds())).
			SetLogLevel(0),
	)

	return &InfluxClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		logger:   logger.WithField("component", "influxdb"),
		cfg:      cfg,
		bucket:   cfg.Bucket,
	}
}

// Close closes the InfluxDB client
func (ic *InfluxClient) Close() {
	ic.client.Close()
}

// Health checks InfluxDB health
func (ic *InfluxClient) Health(ctx context.Context) error {
	health, err := ic.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influxdb health check failed: %s", msg)
	}

	return nil
}

// measurementFor maps a resolution to its measurement name
func measurementFor(resolution string) string {
	if resolution == "1m" || resolution == "" {
		return "ohlcv"
	}
	return fmt.Sprintf("ohlcv_%s", resolution)
}

// WriteBar writes one OHLCV bar
func (ic *InfluxClient) WriteBar(ctx context.Context, symbol string, bar *models.Bar, resolution string) error {
	point := influxdb2.NewPoint(
		measurementFor(resolution),
		map[string]string{
			"symbol": symbol,
		},
		map[string]interface{}{
			"open":   bar.Open,
			"high":   bar.High,
			"low":    bar.Low,
			"close":  bar.Close,
			"volume": bar.Volume,
			"wap":    bar.WAP,
		},
		bar.Timestamp,
	)

	if err := ic.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write bar data: %w", err)
	}

	return nil
}

// WriteBars writes multiple OHLCV bars in one batch
func (ic *InfluxClient) WriteBars(ctx context.Context, symbol string, bars []*models.Bar, resolution string) error {
	if len(bars) == 0 {
		return nil
	}

	measurement := measurementFor(resolution)

	points := make([]*write.Point, 0, len(bars))
	for _, bar := range bars {
		point := influxdb2.NewPoint(
			measurement,
			map[string]string{
				"symbol": symbol,
			},
			map[string]interface{}{
				"open":   bar.Open,
				"high":   bar.High,
				"low":    bar.Low,
				"close":  bar.Close,
				"volume": bar.Volume,
				"wap":    bar.WAP,
			},
			bar.Timestamp,
		)
		points = append(points, point)
	}

	if err := ic.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write bars batch (%d points): %w", len(points), err)
	}

	return nil
}

// GetBars retrieves OHLCV bars for a symbol in ascending time order.
// Bar indices are left zero; the history loader assigns them when it
// seeds a session's geometry table.
func (ic *InfluxClient) GetBars(ctx context.Context, symbol string, from, to time.Time, resolution string) ([]*models.Bar, error) {
	measurement := measurementFor(resolution)

	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r._field == "open" or r._field == "high" or r._field == "low" or r._field == "close" or r._field == "volume" or r._field == "wap")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"])
	`, ic.bucket, from.Format(time.RFC3339), to.Format(time.RFC3339), measurement, symbol)

	ic.logger.WithFields(logrus.Fields{
		"measurement": measurement,
		"symbol":      symbol,
		"from":        from.Format(time.RFC3339),
		"to":          to.Format(time.RFC3339),
	}).Debug("Executing InfluxDB query for bars")

	result, err := ic.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer result.Close()

	bars := make([]*models.Bar, 0)
	for result.Next() {
		record := result.Record()

		bar := &models.Bar{
			Timestamp: record.Time(),
		}

		if v, ok := record.Values()["open"].(float64); ok {
			bar.Open = v
		}
		if v, ok := record.Values()["high"].(float64); ok {
			bar.High = v
		}
		if v, ok := record.Values()["low"].(float64); ok {
			bar.Low = v
		}
		if v, ok := record.Values()["close"].(float64); ok {
			bar.Close = v
		}
		if v, ok := record.Values()["volume"].(float64); ok {
			bar.Volume = v
		}
		if v, ok := record.Values()["wap"].(float64); ok {
			bar.WAP = v
		}

		bars = append(bars, bar)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query error: %w", result.Err())
	}

	return bars, nil
}
