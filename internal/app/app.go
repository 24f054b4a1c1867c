package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ajmal017/piker/internal/api"
	"github.com/ajmal017/piker/internal/cache"
	"github.com/ajmal017/piker/internal/chart"
	"github.com/ajmal017/piker/internal/database"
	"github.com/ajmal017/piker/internal/feed"
	"github.com/ajmal017/piker/internal/history"
	"github.com/ajmal017/piker/internal/messaging"
	"github.com/ajmal017/piker/internal/symbols"
	"github.com/ajmal017/piker/pkg/config"

	"github.com/sirupsen/logrus"
)

// App represents the main application
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Core components
	influxDB   *database.InfluxClient
	mysqlDB    *database.MySQLClient
	redisCache *cache.RedisClient
	natsClient *messaging.NATSClient
	symbolsMgr *symbols.Manager

	// Services
	chartMgr  *chart.Manager
	loader    *history.Loader
	consumer  *feed.Consumer
	wsHub     *api.Hub
	apiServer *api.Server
}

// New creates a new application instance
func New(cfg *config.Config, logger *logrus.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize initializes all application components
func (a *App) Initialize() error {
	if err := a.initializeDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initializeSymbols(); err != nil {
		return fmt.Errorf("failed to initialize symbols: %w", err)
	}

	if err := a.initializeCache(); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := a.initializeMessaging(); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	if err := a.initializeCharts(); err != nil {
		return fmt.Errorf("failed to initialize charts: %w", err)
	}

	a.initializeAPIServer()

	return nil
}

// Start starts the application
func (a *App) Start() error {
	// session dispatch loops must run before anything posts work
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.chartMgr.Run(a.ctx)
	}()

	// seed each session's geometry table from cache/Influx
	for _, symbol := range a.chartMgr.Symbols() {
		session, _ := a.chartMgr.Get(symbol)
		if err := a.loader.Seed(a.ctx, session, a.cfg.Chart.Resolution, a.cfg.Chart.HistoryWindow); err != nil {
			a.logger.WithError(err).WithField("symbol", symbol).Warn("History seed failed")
		}
	}

	// crosshair broadcasts
	a.wsHub.Start(a.ctx)

	// live bar/quote feed
	if err := a.consumer.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start feed consumer: %w", err)
	}

	// API server
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the application
func (a *App) Stop() error {
	a.logger.Info("Stopping application...")

	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All goroutines stopped")
	case <-time.After(3 * time.Second):
		a.logger.Warn("Timeout waiting for goroutines to finish")
	}

	if a.apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.apiServer.Stop(ctx); err != nil {
			a.logger.WithError(err).Error("Error stopping API server")
		}
		cancel()
	}

	if err := a.closeConnections(); err != nil {
		a.logger.WithError(err).Error("Error closing connections")
	}

	a.logger.Info("Application stopped")
	return nil
}

// GetContext returns the application context
func (a *App) GetContext() context.Context {
	return a.ctx
}

// Private initialization methods

func (a *App) initializeDatabase() error {
	mysqlClient, err := database.NewMySQLClient(&a.cfg.MySQL, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	a.mysqlDB = mysqlClient

	a.influxDB = database.NewInfluxClient(&a.cfg.InfluxDB, a.logger)

	if err := a.influxDB.Health(a.ctx); err != nil {
		return fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	return nil
}

func (a *App) initializeSymbols() error {
	a.symbolsMgr = symbols.NewManager(a.mysqlDB, a.logger)

	if err := a.symbolsMgr.Initialize(a.ctx); err != nil {
		return fmt.Errorf("failed to initialize symbols manager: %w", err)
	}

	return nil
}

func (a *App) initializeCache() error {
	redisClient, err := cache.NewRedisClient(&a.cfg.Redis, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.redisCache = redisClient

	return nil
}

func (a *App) initializeMessaging() error {
	natsClient, err := messaging.NewNATSClient(&a.cfg.NATS, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.natsClient = natsClient

	return nil
}

func (a *App) initializeCharts() error {
	a.chartMgr = chart.NewManager(a.cfg, a.logger)

	for _, symbol := range a.cfg.Chart.Symbols {
		digits := a.symbolsMgr.PriceDigits(symbol, a.cfg.Cursor.Digits)
		if _, err := a.chartMgr.CreateSession(symbol, digits); err != nil {
			return fmt.Errorf("failed to create session for %s: %w", symbol, err)
		}
	}

	a.loader = history.NewLoader(a.influxDB, a.redisCache, a.logger)
	a.consumer = feed.NewConsumer(
		a.natsClient,
		a.chartMgr,
		a.influxDB,
		a.redisCache,
		a.cfg.Chart.Resolution,
		a.logger,
	)

	return nil
}

func (a *App) initializeAPIServer() {
	a.wsHub = api.NewHub(&a.cfg.WebSocket, a.chartMgr, a.logger)
	a.apiServer = api.NewServer(a.cfg, a.logger, a.chartMgr, a.symbolsMgr, a.wsHub)
}

func (a *App) closeConnections() error {
	var errs []error

	if a.mysqlDB != nil {
		if err := a.mysqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close MySQL: %w", err))
		}
	}

	if a.influxDB != nil {
		a.influxDB.Close()
	}

	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if a.natsClient != nil {
		if err := a.natsClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close NATS: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}

	return nil
}
