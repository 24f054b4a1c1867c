package symbols

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ajmal017/piker/internal/database"
	"github.com/ajmal017/piker/pkg/models"

	"github.com/sirupsen/logrus"
)

// Manager keeps symbol metadata in memory. Label formatting pulls
// price digits from here instead of querying MySQL per update.
type Manager struct {
	symbols map[string]*models.SymbolInfo

	mysql  *database.MySQLClient
	logger *logrus.Entry

	mu          sync.RWMutex
	lastRefresh time.Time
}

// NewManager creates a new symbols manager
func NewManager(mysql *database.MySQLClient, logger *logrus.Logger) *Manager {
	return &Manager{
		symbols: make(map[string]*models.SymbolInfo),
		mysql:   mysql,
		logger:  logger.WithField("component", "symbols-manager"),
	}
}

// Initialize loads all symbols from the database
func (m *Manager) Initialize(ctx context.Context) error {
	symbols, err := m.mysql.GetSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.symbols = make(map[string]*models.SymbolInfo, len(symbols))
	for _, s := range symbols {
		m.symbols[s.Symbol] = s
	}
	m.lastRefresh = time.Now()

	m.logger.WithField("count", len(m.symbols)).Info("Symbols loaded")
	return nil
}

// Get returns metadata for a symbol
func (m *Manager) Get(symbol string) (*models.SymbolInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.symbols[symbol]
	return s, ok
}

// PriceDigits returns the label precision for a symbol, falling back
// to def when no metadata row exists
func (m *Manager) PriceDigits(symbol string, def int) int {
	if s, ok := m.Get(symbol); ok {
		return s.PriceDigits
	}
	return def
}

// Count returns the number of known symbols
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.symbols)
}
