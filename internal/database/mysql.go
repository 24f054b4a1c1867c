package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ajmal017/piker/pkg/config"
	"github.com/ajmal017/piker/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// MySQLClient handles symbol metadata stored in MySQL
type MySQLClient struct {
	db     *sql.DB
	logger *logrus.Entry
	cfg    *config.MySQLConfig
}

// NewMySQLClient creates a new MySQL client
func NewMySQLClient(cfg *config.MySQLConfig, logger *logrus.Logger) (*MySQLClient, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &MySQLClient{
		db:     db,
		logger: logger.WithField("component", "mysql"),
		cfg:    cfg,
	}, nil
}

// Close closes the database connection
func (mc *MySQLClient) Close() error {
	return mc.db.Close()
}

// Health checks database health
func (mc *MySQLClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return mc.db.PingContext(ctx)
}

// GetSymbols retrieves all active symbols
func (mc *MySQLClient) GetSymbols(ctx context.Context) ([]*models.SymbolInfo, error) {
	query := `
		SELECT id, exchange, symbol, full_name, instrument_type,
		       price_digits, min_price_increment, is_active,
		       created_at, updated_at
		FROM symbolsmap
		WHERE is_active = 1
		ORDER BY symbol
	`

	rows, err := mc.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]*models.SymbolInfo, 0)
	for rows.Next() {
		var s models.SymbolInfo
		if err := rows.Scan(
			&s.ID, &s.Exchange, &s.Symbol, &s.FullName, &s.InstrumentType,
			&s.PriceDigits, &s.MinPriceIncrement, &s.IsActive,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan symbol row: %w", err)
		}
		symbols = append(symbols, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("symbol rows error: %w", err)
	}

	return symbols, nil
}

// GetSymbol retrieves one symbol by name
func (mc *MySQLClient) GetSymbol(ctx context.Context, symbol string) (*models.SymbolInfo, error) {
	query := `
		SELECT id, exchange, symbol, full_name, instrument_type,
		       price_digits, min_price_increment, is_active,
		       created_at, updated_at
		FROM symbolsmap
		WHERE symbol = ?
	`

	var s models.SymbolInfo
	err := mc.db.QueryRowContext(ctx, query, symbol).Scan(
		&s.ID, &s.Exchange, &s.Symbol, &s.FullName, &s.InstrumentType,
		&s.PriceDigits, &s.MinPriceIncrement, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol %s: %w", symbol, err)
	}

	return &s, nil
}
