package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	drepo "github.com/YoByron/trading-sub013/internal/domain/repository"
)

// Client implements a SignalStream backed by the upstream signal gateway's
// WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	tickers   []string
	connected bool
}

// New creates a new WebSocket SignalStream.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration) drepo.SignalStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("feed: connected")
	return nil
}

// Subscribe subscribes to the given tickers and remembers them for
// resubscription after a reconnect.
func (c *Client) Subscribe(ctx context.Context, tickers []string) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, t := range tickers {
		msg := map[string]string{"type": "subscribe", "symbol": t}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
		log.Printf("feed: subscribed %s", t)
	}
	c.tickers = tickers
	return nil
}

type wsSignal struct {
	Source     string  `json:"source"`
	S          string  `json:"s"`
	T          int64   `json:"t"` // ms
	Value      float64 `json:"value"`
	Encoding   string  `json:"encoding"`
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	BullAbove  float64 `json:"bull_above"`
	BearBelow  float64 `json:"bear_below"`
	Confidence float64 `json:"confidence"`
}

type wsMessage struct {
	Type string     `json:"type"`
	Data []wsSignal `json:"data"`
}

// Read streams Signal events and errors. Encodings pass through untouched;
// a malformed encoding is a data error the gate layer surfaces, not a frame
// the stream may silently repair.
func (c *Client) Read(ctx context.Context) (<-chan *models.Signal, <-chan error) {
	signals := make(chan *models.Signal, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(signals)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-signal frames
					continue
				}
				if m.Type != "signal" {
					continue
				}
				for _, d := range m.Data {
					sig := &models.Signal{
						SourceID:   d.Source,
						Ticker:     d.S,
						Timestamp:  time.UnixMilli(d.T),
						RawValue:   d.Value,
						Confidence: d.Confidence,
						Encoding: models.SignalEncoding{
							Kind:      models.EncodingKind(d.Encoding),
							Label:     d.Label,
							Score:     d.Score,
							BullAbove: d.BullAbove,
							BearBelow: d.BearBelow,
						},
					}
					select {
					case signals <- sig:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return signals, errs
}

// Reconnect closes and reconnects, then resubscribes the last ticker set.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx, c.tickers)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
