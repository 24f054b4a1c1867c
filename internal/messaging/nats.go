package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ajmal017/piker/pkg/config"
	"github.com/ajmal017/piker/pkg/models"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient handles NATS messaging for the bar feed and L1 quotes
type NATSClient struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	encoder *nats.EncodedConn
	logger  *logrus.Entry
	cfg     *config.NATSConfig

	subs   map[string]*nats.Subscription
	subsMu sync.RWMutex
}

// NewNATSClient creates a new NATS client
func NewNATSClient(cfg *config.NATSConfig, logger *logrus.Logger) (*NATSClient, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	encoder, err := nats.NewEncodedConn(conn, nats.JSON_ENCODER)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create encoded connection: %w", err)
	}

	nc := &NATSClient{
		conn:    conn,
		js:      js,
		encoder: encoder,
		logger:  logger.WithField("component", "nats"),
		cfg:     cfg,
		subs:    make(map[string]*nats.Subscription),
	}

	if err := nc.initializeStreams(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	return nc, nil
}

// Close closes the NATS connection
func (nc *NATSClient) Close() error {
	nc.subsMu.Lock()
	for _, sub := range nc.subs {
		sub.Unsubscribe()
	}
	nc.subs = make(map[string]*nats.Subscription)
	nc.subsMu.Unlock()

	nc.encoder.Close()
	nc.conn.Close()
	return nil
}

// IsConnected checks if NATS is connected
func (nc *NATSClient) IsConnected() bool {
	return nc.conn.IsConnected()
}

// Drain drains the connection (graceful shutdown)
func (nc *NATSClient) Drain() error {
	return nc.conn.Drain()
}

// initializeStreams creates JetStream streams
func (nc *NATSClient) initializeStreams() error {
	// Bar stream: closed bars and forming-bar mutations
	_, err := nc.js.AddStream(&nats.StreamConfig{
		Name:     "BARS",
		Subjects: []string{"bars.>"},
		Storage:  nats.MemoryStorage,
		MaxAge:   24 * time.Hour,
		MaxMsgs:  1000000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create BARS stream: %w", err)
	}

	// Quote stream: top-of-book bid/ask updates
	_, err = nc.js.AddStream(&nats.StreamConfig{
		Name:     "QUOTES",
		Subjects: []string{"quotes.>"},
		Storage:  nats.MemoryStorage,
		MaxAge:   1 * time.Hour,
		MaxMsgs:  1000000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create QUOTES stream: %w", err)
	}

	return nil
}

// PublishBar publishes a bar update for a symbol
func (nc *NATSClient) PublishBar(msg *models.BarMessage) error {
	subject := fmt.Sprintf("bars.%s", msg.Symbol)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal bar message: %w", err)
	}

	future, err := nc.js.PublishAsync(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish bar: %w", err)
	}

	select {
	case <-future.Ok():
		return nil
	case err := <-future.Err():
		return fmt.Errorf("failed to publish bar: %w", err)
	case <-time.After(2 * time.Second):
		return fmt.Errorf("publish timeout for subject %s", subject)
	}
}

// SubscribeBars subscribes to bar updates, for all symbols or a
// specific list
func (nc *NATSClient) SubscribeBars(handler func(*models.BarMessage), symbols ...string) error {
	if len(symbols) > 0 {
		for _, symbol := range symbols {
			subj := fmt.Sprintf("bars.%s", symbol)
			sub, err := nc.encoder.Subscribe(subj, func(msg *models.BarMessage) {
				handler(msg)
			})
			if err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", subj, err)
			}

			nc.subsMu.Lock()
			nc.subs[subj] = sub
			nc.subsMu.Unlock()
		}
		return nil
	}

	subject := "bars.>"
	sub, err := nc.encoder.Subscribe(subject, func(msg *models.BarMessage) {
		handler(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to bars: %w", err)
	}

	nc.subsMu.Lock()
	nc.subs[subject] = sub
	nc.subsMu.Unlock()

	return nil
}

// PublishQuote publishes an L1 quote for a symbol
func (nc *NATSClient) PublishQuote(quote *models.QuoteData) error {
	subject := fmt.Sprintf("quotes.%s", quote.Symbol)

	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	if _, err := nc.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish quote: %w", err)
	}
	return nil
}

// SubscribeQuotes subscribes to L1 quote updates
func (nc *NATSClient) SubscribeQuotes(handler func(*models.QuoteData), symbols ...string) error {
	if len(symbols) > 0 {
		for _, symbol := range symbols {
			subj := fmt.Sprintf("quotes.%s", symbol)
			sub, err := nc.encoder.Subscribe(subj, func(quote *models.QuoteData) {
				handler(quote)
			})
			if err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", subj, err)
			}

			nc.subsMu.Lock()
			nc.subs[subj] = sub
			nc.subsMu.Unlock()
		}
		return nil
	}

	subject := "quotes.>"
	sub, err := nc.encoder.Subscribe(subject, func(quote *models.QuoteData) {
		handler(quote)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to quotes: %w", err)
	}

	nc.subsMu.Lock()
	nc.subs[subject] = sub
	nc.subsMu.Unlock()

	return nil
}

// Unsubscribe unsubscribes from a subject
func (nc *NATSClient) Unsubscribe(subject string) error {
	nc.subsMu.Lock()
	defer nc.subsMu.Unlock()

	if sub, exists := nc.subs[subject]; exists {
		if err := sub.Unsubscribe(); err != nil {
			return fmt.Errorf("failed to unsubscribe: %w", err)
		}
		delete(nc.subs, subject)
	}

	return nil
}
