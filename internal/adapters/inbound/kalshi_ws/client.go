package kalshi_ws

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kalshi-sniper/internal/adapters/kalshi_auth"
	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// OnUpdate receives every parsed orderbook snapshot/delta. Registered by
// the Watcher, which owns the market cache.
type OnUpdate func(events.MarketUpdate)

const (
	pingInterval   = 20 * time.Second
	pingTimeout    = 10 * time.Second
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Client maintains the persistent orderbook WebSocket.
//
// Gorilla/websocket supports one concurrent reader and one concurrent
// writer, so all writes are serialized through mu.
type Client struct {
	url      string
	signer   *kalshi_auth.Signer
	onUpdate OnUpdate
	parser   *bookParser
	done     chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	tickers map[string]bool
}

func NewClient(wsURL string, signer *kalshi_auth.Signer, onUpdate OnUpdate) *Client {
	return &Client{
		url:      wsURL,
		signer:   signer,
		onUpdate: onUpdate,
		parser:   newBookParser(),
		done:     make(chan struct{}),
		tickers:  make(map[string]bool),
	}
}

// Subscribe adds tickers and subscribes on the LIVE connection. Safe to
// call from any goroutine at any time; tickers already subscribed are
// skipped. If the connection is not yet established the tickers are
// stored and subscribed on the next successful connect.
func (c *Client) Subscribe(tickers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fresh []string
	for _, t := range tickers {
		if !c.tickers[t] {
			c.tickers[t] = true
			fresh = append(fresh, t)
		}
	}

	if len(fresh) == 0 || c.conn == nil {
		return
	}

	if err := c.sendSubscribe(fresh); err != nil {
		telemetry.Warnf("kalshi_ws: mid-session subscribe failed: %v (will retry on reconnect)", err)
	}
}

// Unsubscribe removes tickers from the tracked set so they are not
// re-subscribed after a reconnect.
func (c *Client) Unsubscribe(tickers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tickers {
		delete(c.tickers, t)
	}
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff. Backoff resets after every clean connect.
func (c *Client) Run(ctx context.Context) {
	defer close(c.done)

	backoff := initialBackoff
	for {
		if err := c.dial(ctx); err != nil {
			telemetry.Warnf("kalshi_ws: dial failed: %v — reconnecting in %s", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		telemetry.Infof("kalshi_ws: connected to %s", c.url)
		c.resubscribeAll()
		c.readLoop(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (c *Client) dial(ctx context.Context) error {
	parsed, _ := url.Parse(c.url)
	wsPath := parsed.Path
	if wsPath == "" {
		wsPath = "/trade-api/ws/v2"
	}
	header := c.signer.Headers("GET", wsPath)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// resubscribeAll sends a subscribe for every known ticker.
// Called after each successful connection.
func (c *Client) resubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.tickers) == 0 {
		return
	}

	all := make([]string, 0, len(c.tickers))
	for t := range c.tickers {
		all = append(all, t)
	}

	if err := c.sendSubscribe(all); err != nil {
		telemetry.Warnf("kalshi_ws: resubscribe failed: %v", err)
	}
}

type subscribeCmd struct {
	ID     string          `json:"id"`
	Cmd    string          `json:"cmd"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

// sendSubscribe writes a subscribe command. Caller must hold mu.
func (c *Client) sendSubscribe(tickers []string) error {
	cmd := subscribeCmd{
		ID:  uuid.NewString(),
		Cmd: "subscribe",
		Params: subscribeParams{
			Channels:      []string{"orderbook_delta"},
			MarketTickers: tickers,
		},
	}
	telemetry.Infof("kalshi_ws: subscribing to %d orderbook channels", len(tickers))
	return c.conn.WriteJSON(cmd)
}

// readLoop pumps frames until the connection drops. An application-layer
// ping goes out every pingInterval; a pong (or any frame) must arrive
// within pingInterval+pingTimeout or the read deadline closes the socket.
func (c *Client) readLoop(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	defer func() {
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	deadline := pingInterval + pingTimeout
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(deadline))
		return nil
	})

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			telemetry.Warnf("kalshi_ws: read error: %v", err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(deadline))

		if update, ok := c.parser.Parse(msg, time.Now()); ok {
			c.onUpdate(update)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingTimeout))
			c.mu.Unlock()
			if err != nil {
				telemetry.Warnf("kalshi_ws: ping failed: %v", err)
				return
			}
		}
	}
}

// Close tears down the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}
