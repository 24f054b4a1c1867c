package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajmal017/piker/internal/cache"
	"github.com/ajmal017/piker/internal/chart"
	"github.com/ajmal017/piker/internal/database"
	"github.com/ajmal017/piker/internal/history"
	"github.com/ajmal017/piker/pkg/config"
	"github.com/ajmal017/piker/pkg/logger"
)

var (
	replaySymbol     string
	replayResolution string
	replayDays       int
)

// replayCmd compiles render batches for stored history offline, without
// the NATS feed or the API server. Useful for sizing geometry tables
// and sanity-checking stored bars.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay stored history through a chart session",
	Long: `Load stored bars for a symbol and compile them into render
batches, printing batch and bounds statistics.

Examples:
  # Replay 7 days of 1m bars for BTCUSDT
  piker replay --symbol BTCUSDT --resolution 1m --days 7`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replaySymbol, "symbol", "", "Symbol to replay (e.g., BTCUSDT)")
	replayCmd.Flags().StringVar(&replayResolution, "resolution", "1m", "Bar resolution (1m, 5m, 1h, 1d, ...)")
	replayCmd.Flags().IntVar(&replayDays, "days", 7, "Number of days of history to replay")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replaySymbol == "" {
		return fmt.Errorf("--symbol is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	influx := database.NewInfluxClient(&cfg.InfluxDB, log)
	defer influx.Close()
	if err := influx.Health(ctx); err != nil {
		return fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	redisCache, err := cache.NewRedisClient(&cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisCache.Close()

	session, err := chart.NewSession(replaySymbol, chart.Options{
		Capacity:       cfg.Chart.Capacity,
		BarWidth:       cfg.Chart.BarWidth,
		Digits:         cfg.Cursor.Digits,
		DebounceWindow: cfg.Cursor.DebounceWindow,
		RateLimit:      cfg.Cursor.RateLimit,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go session.Run(runCtx)

	loader := history.NewLoader(influx, redisCache, log)
	window := time.Duration(replayDays) * 24 * time.Hour
	start := time.Now()
	if err := loader.Seed(ctx, session, replayResolution, window); err != nil {
		return fmt.Errorf("failed to seed history: %w", err)
	}

	var snapshot chart.Snapshot
	session.Do(func() {
		snapshot = session.Render()
	})
	elapsed := time.Since(start)

	fmt.Printf("Symbol:      %s\n", snapshot.Symbol)
	fmt.Printf("Bars:        %d\n", snapshot.Count)
	fmt.Printf("History:     bars [%d,%d) with %d lines\n",
		snapshot.History.Start, snapshot.History.End, len(snapshot.History.Lines))
	fmt.Printf("Live:        bars [%d,%d) with %d lines\n",
		snapshot.Live.Start, snapshot.Live.End, len(snapshot.Live.Lines))
	if snapshot.Bounds.Valid {
		fmt.Printf("Bounds:      x [%g,%g]  y [%g,%g]\n",
			snapshot.Bounds.X0, snapshot.Bounds.X1, snapshot.Bounds.Y0, snapshot.Bounds.Y1)
	} else {
		fmt.Println("Bounds:      empty")
	}
	fmt.Printf("Elapsed:     %s\n", elapsed.Round(time.Millisecond))

	return nil
}
