package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"memetrader/internal/domain"
)

// FeedConfig configures WebSocket price feed behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns default price feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSPriceFeed implements PriceFeed over a WebSocket price stream.
// Subscriptions are keyed by mint and survive reconnects.
type WSPriceFeed struct {
	endpoint string
	config   FeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subs maps mint to delivery channel
	subs   map[string]chan domain.PriceUpdate
	subsMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSPriceFeed creates a price feed and connects to the endpoint.
func NewWSPriceFeed(ctx context.Context, endpoint string, config *FeedConfig, logger *log.Logger) (*WSPriceFeed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	f := &WSPriceFeed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		subs:     make(map[string]chan domain.PriceUpdate),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

var _ PriceFeed = (*WSPriceFeed)(nil)

// feedRequest is the subscribe/unsubscribe frame.
type feedRequest struct {
	Op    string   `json:"op"` // subscribe | unsubscribe
	Mints []string `json:"mints"`
}

// feedTick is a price update frame.
type feedTick struct {
	Type  string  `json:"type"`
	Mint  string  `json:"mint"`
	Price float64 `json:"price"`
	TsMs  int64   `json:"ts"`
}

// connect establishes the WebSocket connection.
func (f *WSPriceFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// Subscribe starts streaming price updates for a mint. The returned channel
// is closed on Unsubscribe or Close.
func (f *WSPriceFeed) Subscribe(ctx context.Context, mint string) (<-chan domain.PriceUpdate, error) {
	if f.closed.Load() {
		return nil, fmt.Errorf("feed closed")
	}

	f.subsMu.Lock()
	if _, exists := f.subs[mint]; exists {
		f.subsMu.Unlock()
		return nil, fmt.Errorf("already subscribed to %s", mint)
	}
	// Buffer absorbs bursts; delivery blocks rather than dropping ticks
	ch := make(chan domain.PriceUpdate, 1024)
	f.subs[mint] = ch
	f.subsMu.Unlock()

	if err := f.writeRequest(feedRequest{Op: "subscribe", Mints: []string{mint}}); err != nil {
		f.subsMu.Lock()
		delete(f.subs, mint)
		f.subsMu.Unlock()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	return ch, nil
}

// Unsubscribe stops streaming for a mint and closes its channel.
func (f *WSPriceFeed) Unsubscribe(mint string) error {
	f.subsMu.Lock()
	ch, ok := f.subs[mint]
	if ok {
		delete(f.subs, mint)
	}
	f.subsMu.Unlock()

	if !ok {
		return nil
	}
	close(ch)

	if f.closed.Load() {
		return nil
	}
	return f.writeRequest(feedRequest{Op: "unsubscribe", Mints: []string{mint}})
}

// Close closes the connection and all subscription channels.
func (f *WSPriceFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.subsMu.Lock()
	for mint, ch := range f.subs {
		close(ch)
		delete(f.subs, mint)
	}
	f.subsMu.Unlock()

	f.wg.Wait()
	return nil
}

func (f *WSPriceFeed) writeRequest(req feedRequest) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	return f.conn.WriteJSON(req)
}

// readLoop reads ticks and dispatches to subscribers, reconnecting on error.
func (f *WSPriceFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect re-establishes the connection and resubscribes all mints.
func (f *WSPriceFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.logger.Printf("[feed] reconnect failed: %v", err)
		return
	}

	f.subsMu.RLock()
	mints := make([]string, 0, len(f.subs))
	for mint := range f.subs {
		mints = append(mints, mint)
	}
	f.subsMu.RUnlock()

	if len(mints) == 0 {
		return
	}
	if err := f.writeRequest(feedRequest{Op: "subscribe", Mints: mints}); err != nil {
		f.logger.Printf("[feed] resubscribe failed: %v", err)
	}
}

// handleMessage parses a tick frame and delivers it to the subscriber.
func (f *WSPriceFeed) handleMessage(message []byte) {
	var tick feedTick
	if err := json.Unmarshal(message, &tick); err != nil {
		return
	}
	if tick.Type != "price" || tick.Mint == "" || tick.Price <= 0 {
		return
	}

	f.subsMu.RLock()
	ch, ok := f.subs[tick.Mint]
	f.subsMu.RUnlock()

	if ok {
		// Block until delivered - ticks drive exit triggers, never drop them
		select {
		case ch <- domain.PriceUpdate{Mint: tick.Mint, Price: tick.Price, TimestampMs: tick.TsMs}:
		case <-f.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (f *WSPriceFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Reader will detect the dead connection and reconnect
				}
			}
			f.connMu.Unlock()
		}
	}
}
