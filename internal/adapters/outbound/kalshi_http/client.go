package kalshi_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"kalshi-sniper/internal/adapters/kalshi_auth"
	"kalshi-sniper/internal/telemetry"
)

// Client is the signed REST transport for the exchange.
//
// The connection pool is opened and TLS-warmed at Startup so the first
// order never pays a TCP or TLS handshake. A background keepalive probe
// hits the status endpoint to keep pooled connections from idling out.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	signer       *kalshi_auth.Signer
	readLimiter  *rate.Limiter
	writeLimiter *rate.Limiter

	keepaliveInterval time.Duration
	stopOnce          sync.Once
	stopCh            chan struct{}
}

func NewClient(baseURL string, signer *kalshi_auth.Signer, keepaliveInterval time.Duration) *Client {
	dialer := &net.Dialer{
		Timeout:   2 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   5 * time.Second,
			Transport: transport,
		},
		signer:            signer,
		readLimiter:       rate.NewLimiter(rate.Limit(20), 20),
		writeLimiter:      rate.NewLimiter(rate.Limit(10), 10),
		keepaliveInterval: keepaliveInterval,
		stopCh:            make(chan struct{}),
	}
}

// Startup pre-resolves DNS for the exchange host, forces a TCP+TLS
// handshake into the pool via a warm-up request, and starts the keepalive
// probe. Call once before the hot path runs.
func (c *Client) Startup(ctx context.Context) error {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}

	// Pre-resolve so the first real call never waits on a resolver.
	addrs, err := net.DefaultResolver.LookupHost(ctx, parsed.Hostname())
	if err != nil {
		telemetry.Warnf("kalshi_http: DNS pre-resolve %s failed: %v", parsed.Hostname(), err)
	} else if len(addrs) > 0 {
		telemetry.Infof("kalshi_http: DNS pre-resolved %s -> %s", parsed.Hostname(), addrs[0])
	}

	if _, err := c.GetExchangeStatus(ctx); err != nil {
		return fmt.Errorf("warm-up request: %w", err)
	}
	telemetry.Infof("kalshi_http: connection pool warmed up")

	if c.keepaliveInterval > 0 {
		go c.keepaliveLoop()
	}
	return nil
}

// Shutdown stops the keepalive probe and closes idle connections.
func (c *Client) Shutdown() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.httpClient.CloseIdleConnections()
}

// keepaliveLoop pings the inexpensive status endpoint so the pooled
// connection stays warm between trading bursts.
func (c *Client) keepaliveLoop() {
	ticker := time.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := c.GetExchangeStatus(ctx); err != nil {
				telemetry.Warnf("kalshi_http: keepalive ping failed: %v", err)
			}
			cancel()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	lim := c.readLimiter
	if method != http.MethodGet {
		lim = c.writeLimiter
	}
	if err := lim.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.signer.SignRequest(req); err != nil {
		return nil, 0, fmt.Errorf("sign: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	telemetry.Debugf("kalshi_http: %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	return respBody, resp.StatusCode, nil
}

// request issues a signed call, rejects non-2xx responses, and decodes
// the JSON body into out (when out is non-nil).
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	respBody, status, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%s %s: status=%d body=%s", method, path, status, truncate(respBody, 200))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// GetExchangeStatus is the cheap endpoint used for warm-up and keepalive.
func (c *Client) GetExchangeStatus(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.request(ctx, http.MethodGet, "/exchange/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
