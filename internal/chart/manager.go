package chart

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajmal017/piker/internal/cursor"
	"github.com/ajmal017/piker/internal/render"
	"github.com/ajmal017/piker/pkg/config"

	"github.com/sirupsen/logrus"
)

// Manager owns one chart session per symbol
type Manager struct {
	cfg    *config.Config
	logger *logrus.Logger
	log    *logrus.Entry

	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a session manager
func NewManager(cfg *config.Config, logger *logrus.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		log:      logger.WithField("component", "chart-manager"),
		sessions: make(map[string]*Session),
	}
}

// CreateSession creates and registers a session for symbol with the
// configured capacity and bar width. digits sets label precision,
// typically from the symbol's metadata row.
func (m *Manager) CreateSession(symbol string, digits int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[symbol]; exists {
		return nil, fmt.Errorf("session for %s already exists", symbol)
	}

	session, err := NewSession(symbol, Options{
		Capacity:       m.cfg.Chart.Capacity,
		BarWidth:       m.cfg.Chart.BarWidth,
		Digits:         digits,
		DebounceWindow: m.cfg.Cursor.DebounceWindow,
		RateLimit:      m.cfg.Cursor.RateLimit,
	}, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", symbol, err)
	}

	// every session starts with the main price panel; additional
	// linked subplots register through the API
	session.RegisterPanel("price", cursor.IdentityTransform, render.Rect{})

	m.sessions[symbol] = session
	m.log.WithField("symbol", symbol).Info("Chart session created")

	return session, nil
}

// Get returns the session for symbol
func (m *Manager) Get(symbol string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[symbol]
	return s, ok
}

// Symbols returns the symbols with live sessions
func (m *Manager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := make([]string, 0, len(m.sessions))
	for s := range m.sessions {
		symbols = append(symbols, s)
	}
	return symbols
}

// Run starts every session's dispatch loop and blocks until the
// context is cancelled
func (m *Manager) Run(ctx context.Context) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Run(ctx)
		}(s)
	}
	wg.Wait()
}
