package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ajmal017/piker/pkg/config"
	"github.com/ajmal017/piker/pkg/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisClient caches the recent bar window and last L1 quotes in
// front of InfluxDB
type RedisClient struct {
	client *redis.Client
	logger *logrus.Entry
	cfg    *config.RedisConfig
	ttl    time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig, logger *logrus.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
		MaxRetries:   2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	ttl := cfg.BarCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RedisClient{
		client: client,
		logger: logger.WithField("component", "redis"),
		cfg:    cfg,
		ttl:    ttl,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// Health checks Redis health
func (rc *RedisClient) Health(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// SetBars caches a symbol's recent bar window
func (rc *RedisClient) SetBars(ctx context.Context, symbol, resolution string, bars []*models.Bar) error {
	key := fmt.Sprintf("bars:%s:%s", symbol, resolution)

	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("failed to marshal bars: %w", err)
	}

	return rc.client.Set(ctx, key, data, rc.ttl).Err()
}

// GetBars returns the cached bar window for a symbol, or nil on a
// cache miss
func (rc *RedisClient) GetBars(ctx context.Context, symbol, resolution string) ([]*models.Bar, error) {
	key := fmt.Sprintf("bars:%s:%s", symbol, resolution)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bars: %w", err)
	}

	var bars []*models.Bar
	if err := json.Unmarshal([]byte(data), &bars); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bars: %w", err)
	}

	return bars, nil
}

// SetQuote caches the last L1 quote for a symbol
func (rc *RedisClient) SetQuote(ctx context.Context, quote *models.QuoteData) error {
	key := fmt.Sprintf("quote:%s", quote.Symbol)

	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	return rc.client.Set(ctx, key, data, rc.ttl).Err()
}

// GetQuote returns the cached L1 quote for a symbol, or nil on a
// cache miss
func (rc *RedisClient) GetQuote(ctx context.Context, symbol string) (*models.QuoteData, error) {
	key := fmt.Sprintf("quote:%s", symbol)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	var quote models.QuoteData
	if err := json.Unmarshal([]byte(data), &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}

	return &quote, nil
}
